// Package seq provides anchor-addressed editing primitives over a bare
// instruction sequence.
//
// Every function is pure: the input sequence is never modified and a new
// sequence is returned. A missing anchor is not an error; each operation
// documents its fallback (append at the tail, or return the input
// unchanged). All operations are O(n) in the sequence length.
//
// The primitives here are unmirrored. To edit an ir.Set so that the down
// sequence receives the inverse edit, use package edit.
package seq
