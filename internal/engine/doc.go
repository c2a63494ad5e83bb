// Package engine runs transformation pipelines over relup instruction sets.
//
// A pipeline is an ordered chain of steps. Each step resolves a registered
// transformation unit and hands it the set produced by the previous step.
// Units are pure, so a run is deterministic: the same pipeline applied to the
// same input always yields the same output and the same step fingerprints.
//
// Each run gets an ID from a RunIDGenerator and a logical sequence number
// from the Clock. When a Journal is configured, the run and each of its steps
// are recorded; a journal failure fails the run.
//
// Independent runs can be executed concurrently with RunAll. Runs share no
// mutable state apart from the clock and the journal, both of which are safe
// for concurrent use.
package engine
