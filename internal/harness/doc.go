// Package harness runs plan conformance scenarios.
//
// A scenario names a schema, a file of CUE traversal documents and, per
// query, what the compiled plan must look like:
//
//	name: friends
//	description: "Label filters fold into the source"
//	schema: schema.yaml
//	queries: friends.cue
//	options:
//	  default_max_loops: 4
//	expect:
//	  - query: friends
//	    assertions:
//	      - type: vertex_count
//	        count: 3
//	      - type: output_op
//	        op: PROP_VALUE
//	  - query: scripted
//	    error: UNSUPPORTED_FEATURE
//
// Paths are relative to the scenario file.
//
// # Assertion Types
//
//   - vertex_count: the plan has exactly count vertices, loop bodies included
//   - op_count: op appears exactly count times
//   - contains_op: op appears at least once
//   - output_op: the output vertex has operator op
//   - op_order: ops appear in this order in walk order, not necessarily adjacent
//   - explain_contains: the explain text contains text
//
// # Execution
//
// Each run imports the schema into a fresh in-memory store and compiles
// through a cached view of it, so the catalog tables are exercised the
// same way the CLI uses them. Compiled plans are logged into that store
// and their fingerprints reported.
//
// The snapshot of a run (see Snapshot) is deterministic and serves as the
// golden file of the scenario.
package harness
