// Package harness runs relup editing scenarios and checks their outcome.
//
// A scenario is a YAML file describing an input instruction set, the
// pipeline to apply (inline steps or a CUE pipeline file), and what the
// resulting set must look like:
//
//	name: info_after_commit
//	description: info lands right after the commit point
//	input:
//	  up:   [{op: load_module, module: A}, {op: point_of_no_return}]
//	  down: [{op: point_of_no_return}, {op: delete_module, module: A}]
//	steps:
//	  - use: info
//	    options: {up_message: upgrading}
//	expect:
//	  up: [...]
//	assertions:
//	  - type: adjacent
//	    side: up
//	    instructions: [{op: point_of_no_return}, {op: apply, ...}]
//
// Scenarios run through the real engine with a fixed run ID, so results are
// deterministic and can be compared against golden snapshots
// (testdata/golden/<name>.golden, regenerated with `go test -update`).
//
// Assertion types:
//   - contains / absent: an instruction is (not) in a side
//   - count: an instruction occurs exactly count times
//   - order: instructions occur in the given relative order
//   - adjacent: instructions occur as a contiguous run
//   - unchanged: a side equals the input side
//   - before_first_mutation: an instruction follows the commit marker with
//     no mutating instruction in between, self-loading pairs excepted
//   - loaded_before_run / unloaded_after_run: the load of unit precedes its
//     first run, or an unload follows its last run
package harness
