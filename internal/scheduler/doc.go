// Package scheduler runs queued commands phase by phase.
//
// # Why Phases Exist
//
// Some work has to be finished before other work may even be queued: setup
// before the main commands, teardown after them. Phases are named, strictly
// ordered buckets of commands. Each phase owns a pending queue and a
// completed flag, and moves through exactly two states:
//
//	Pending -> Completed
//
// A phase completes once every command queued in it (including commands
// queued while the phase was running) has run. Completion is irrevocable:
// queueing into a completed phase is an error, because it means a
// dependency or trigger fired after the phase already ran.
//
// # How It Works
//
//  1. Enqueue places a command into the queue of its phase and transitively
//     queues its "require before" and "next" commands.
//  2. Run walks the phases in order. For each phase it orders the pending
//     commands with the dependency resolver and dispatches them one by one.
//  3. When nothing is left pending the phase is marked completed.
//
// Execution is single-threaded. The scheduler lock is never held while a
// command runs, so actions may enqueue further work (usually through
// parameter triggers).
package scheduler
