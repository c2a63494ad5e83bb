// Package store provides the SQLite-backed journal of pipeline runs.
//
// The journal is append-mostly:
//   - Runs: one row per pipeline applied to an instruction set, with the
//     canonical JSON of its input and output and their fingerprints
//   - Steps: one row per transformation unit applied during a run
//
// # Ordering
//
// Runs carry a logical seq stamped by the engine clock. Every listing orders
// by seq ASC, id ASC COLLATE BINARY, never by wall-clock time. started_at is
// informational only.
//
// # Idempotency
//
// Writing the same run or step twice is a no-op (ON CONFLICT DO NOTHING), so
// a journal can be replayed into a fresh database.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Instruction sets are stored as canonical JSON (ir.MarshalCanonical).
package store
