// Package store keeps a schema catalog and a log of compiled plans in
// SQLite.
//
// # Catalog
//
// The element_labels, properties and property_types tables hold the names
// traversals are resolved against. A *Store implements schema.Schema over
// them directly; wrap it in schema.NewCached when compiling many
// traversals.
//
// # Plan log
//
// Plans are keyed by their fingerprint, so recording the same compilation
// twice keeps the first row. Rows are ordered by seq, a counter assigned on
// insert, never by wall time:
//
//	ORDER BY seq ASC, id ASC COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
