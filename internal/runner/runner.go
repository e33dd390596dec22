// Package runner executes a single resolved command.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/cmdgrid/internal/ctxlog"
	"github.com/vk/cmdgrid/internal/model"
)

// Values is the read-only view of the value store the runner needs.
type Values interface {
	Has(name string) bool
}

// MissingParameterError is returned when a command is about to run without
// one of its required parameters.
type MissingParameterError struct {
	Parameter string
	Command   string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing required parameter '%s' for command '%s'", e.Parameter, e.Command)
}

// Runner checks a command's requirements and invokes its action.
type Runner struct {
	values Values
}

// New creates a Runner that checks requirements against values.
func New(values Values) *Runner {
	return &Runner{values: values}
}

// Check returns a MissingParameterError for the first required parameter of
// cmd that has no value.
func (r *Runner) Check(cmd *model.Command) error {
	for _, name := range cmd.Required {
		if !r.values.Has(name) {
			return &MissingParameterError{Parameter: name, Command: cmd.Name}
		}
	}
	return nil
}

// Run checks the requirements of cmd and invokes its action. Errors returned
// by the action are passed through unchanged.
func (r *Runner) Run(ctx context.Context, cmd *model.Command) error {
	if err := r.Check(cmd); err != nil {
		return err
	}
	if cmd.Action == nil {
		return nil
	}

	logger := ctxlog.FromContext(ctx).With("command", cmd.Name)
	logger.Info("▶️ Starting command")
	start := time.Now()
	if err := cmd.Action(ctxlog.WithLogger(ctx, logger)); err != nil {
		logger.Debug("Command failed.", "error", err)
		return err
	}
	logger.Info("✅ Finished command", "duration", time.Since(start))
	return nil
}
