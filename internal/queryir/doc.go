// Package queryir is a small query representation for reading the run
// journal.
//
// Callers describe what to read (a table, the columns, a filter and an
// optional limit) and a backend compiler such as querysql turns it into a
// concrete query. Keeping the description separate lets the store and the
// CLI share one filter vocabulary without building SQL strings by hand.
//
// Query and Predicate are sealed interfaces: only the types in this package
// implement them, so backends can switch over them exhaustively.
//
// Column names are checked against a fixed schema by Validate before any
// backend sees them. Values are always carried separately from the query
// text.
package queryir
