// Package cycle runs the repeatable sub-schedules attached to commands.
//
// # Registration
//
// Engine.Register attaches a cycle to a command after validating the whole
// nesting tree it belongs to:
//   - the condition and a non-empty member list are present,
//   - every member, at any depth, runs in the phase of the hosting command,
//   - nesting does not exceed the configured maximum depth.
//
// On success the required parameters of every member (recursively) are added
// to the hosting command, and every member is marked non-invocable so it
// cannot be requested on its own. Registering an identical cycle again is a
// no-op; registering a different one for the same command fails.
//
// Engine.RegisterCommand registers command definitions. Replacing a command
// re-checks every tree and recomputes the aggregated requirements, so a
// member cannot be moved to another phase after the fact. A failed
// registration of either kind leaves the command registry untouched.
//
// # Execution
//
// Engine.Execute runs
//
//	init
//	while condition {
//	    loop_start
//	    members, ordered by the dependency resolver
//	    loop_end
//	}
//	end
//
// Members carrying their own cycle recurse into Execute. Every failure is
// wrapped in an ExecutionError naming the cycle. The innermost running cycle
// is reported by ActiveCycle and restored when a nested cycle returns.
package cycle
