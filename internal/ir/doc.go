// Package ir provides the instruction model for relup editing.
//
// This package contains type definitions, the instruction classifier and the
// JSON/canonical encodings. All other internal packages import ir; ir imports
// nothing internal.
//
// Key design constraints:
//   - Instruction is a sealed interface over a closed variant set. Anything
//     the upgrade runtime understands but this package does not model is
//     carried as Opaque and never classified.
//   - Values are immutable by convention: no function in this module mutates
//     a Sequence it was handed, every edit returns a new one.
//   - Equality is structural (see Equal), never pointer identity.
//   - All JSON tags use snake_case.
package ir
