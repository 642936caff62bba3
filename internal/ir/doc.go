// Package ir provides the foundational value and error types shared by every
// gplan package: literal values carried by traversal steps and plan
// arguments, comparison operators, canonical JSON, content hashes, and the
// CompileError model.
//
// ir imports nothing internal. All other internal packages may import it.
//
// Key design constraints:
//   - Literals are a sealed set (IRValue); there is no `any` in step or plan payloads
//   - Canonical JSON is the only encoding used for hashing and composite payloads
//   - All JSON tags use snake_case
package ir
