package cycle

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField is returned when a cycle lacks its condition or members.
	ErrMissingField = errors.New("missing required cycle field")
	// ErrConflict is returned when a command already carries a different cycle.
	ErrConflict = errors.New("conflicting cycle definition")
	// ErrPhaseMismatch is returned when a member runs in another phase than
	// the command hosting the cycle.
	ErrPhaseMismatch = errors.New("cycle phase mismatch")
	// ErrDepthExceeded is returned when cycles nest deeper than allowed.
	ErrDepthExceeded = errors.New("cycle nesting depth exceeded")
)

// ValidationError is a registration-time failure. Kind is one of the
// sentinel errors above and is matched by errors.Is.
type ValidationError struct {
	Kind    error
	Cycle   string
	Command string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// Stages reported by ExecutionError.
const (
	StageInit      = "init"
	StageCondition = "condition"
	StageLoopStart = "loop_start"
	StageLoopEnd   = "loop_end"
	StageEnd       = "end"
	StageResolve   = "resolve"
	StageCommand   = "command"
)

// ExecutionError wraps any failure raised while a cycle runs.
type ExecutionError struct {
	Cycle string
	Stage string
	// Command is set when Stage is StageCommand.
	Command string
	Err     error
}

func (e *ExecutionError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("cycle '%s' failed in command '%s': %v", e.Cycle, e.Command, e.Err)
	}
	return fmt.Sprintf("cycle '%s' failed in %s: %v", e.Cycle, e.Stage, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
