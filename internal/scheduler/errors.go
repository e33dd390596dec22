package scheduler

import "errors"

var (
	// ErrUnknownPhase is returned for phases missing from the configured order.
	ErrUnknownPhase = errors.New("phase not recognized")
	// ErrPhaseCompleted is returned when queueing into a phase that already ran.
	ErrPhaseCompleted = errors.New("cannot add to completed phase")
	// ErrNotInvocable is returned when a command that only runs inside a cycle
	// is requested directly.
	ErrNotInvocable = errors.New("command cannot be invoked directly")
)
