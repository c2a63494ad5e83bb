// Package transform defines the extension contract for custom
// transformation units and the built-in units shipped with relupedit.
//
// A unit is anything implementing Transformer:
//
//	Transform(set ir.Set, cfg Config) ir.Set
//
// Units are pure: they receive a set and return a new one, using the editing
// primitives of packages seq and edit. Units that need options may also
// implement Validator so that a pipeline is rejected before it runs.
//
// # Built-in units
//
//   - insert_before_point_of_no_return, insert_after_point_of_no_return,
//     append_after_point_of_no_return, append: insert the step's own up
//     (and optional down) instructions
//   - info: log a message during upgrade and rollback
//   - soft_purge: turn every brutal purge into a soft purge
//   - runnable: run Apply{module, "run", args} and keep the module loaded
//     around it
//   - sleep, check_processes_running_old_code: predefined runnables
package transform
