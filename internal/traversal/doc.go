// Package traversal is the input model of the compiler: an already-parsed
// graph traversal as an ordered list of typed steps, possibly nesting
// further traversals (repeat bodies, predicates, branch options,
// by-modulators).
//
// Steps expose their parameters as plain struct fields. Cross-cutting
// questions the builder asks of many step kinds are answered through the
// capability interfaces in capability.go, never through reflection.
//
// The fluent constructors (V, E, Anon and the *Traversal methods) exist for
// tests and programmatic callers; the ingest package builds the same
// structures from CUE documents.
//
// Rewrite applies the fixed strategy sequence (hint stripping, loop-bound
// folding, source-filter folding, filter reordering) to one level of a
// traversal. It never mutates its input.
package traversal
