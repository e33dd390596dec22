package cycle

import (
	"context"

	"github.com/vk/cmdgrid/internal/ctxlog"
	"github.com/vk/cmdgrid/internal/model"
)

// Dispatch runs a command and then the cycle attached to it, if any. This is
// how the scheduler and the engine itself execute commands.
func (e *Engine) Dispatch(ctx context.Context, cmd *model.Command) error {
	if err := e.runner.Run(ctx, cmd); err != nil {
		return err
	}
	return e.Execute(ctx, cmd.Name)
}

// Execute runs the cycle attached to the named command. It is a no-op for
// commands without a cycle.
func (e *Engine) Execute(ctx context.Context, parent string) error {
	cy, ok := e.Cycle(parent)
	if !ok {
		return nil
	}

	previous := e.setActive(cy.Name)
	defer e.setActive(previous)

	logger := ctxlog.FromContext(ctx).With("cycle", cy.Name)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Starting cycle.", "command", parent)

	if err := runHook(ctx, cy.Init); err != nil {
		return &ExecutionError{Cycle: cy.Name, Stage: StageInit, Err: err}
	}

	iteration := 0
	for {
		more, err := cy.Condition(ctx)
		if err != nil {
			return &ExecutionError{Cycle: cy.Name, Stage: StageCondition, Err: err}
		}
		if !more {
			break
		}
		iteration++
		iterCtx := ctxlog.With(ctx, "iteration", iteration)
		logger.Info("🔁 Cycle iteration", "iteration", iteration)

		if err := runHook(iterCtx, cy.LoopStart); err != nil {
			return &ExecutionError{Cycle: cy.Name, Stage: StageLoopStart, Err: err}
		}
		if err := e.runMembers(iterCtx, cy); err != nil {
			return err
		}
		if err := runHook(iterCtx, cy.LoopEnd); err != nil {
			return &ExecutionError{Cycle: cy.Name, Stage: StageLoopEnd, Err: err}
		}
	}

	if err := runHook(ctx, cy.End); err != nil {
		return &ExecutionError{Cycle: cy.Name, Stage: StageEnd, Err: err}
	}
	logger.Debug("Cycle finished.", "iterations", iteration)
	return nil
}

// runMembers builds this iteration's queue from the member list and runs it.
func (e *Engine) runMembers(ctx context.Context, cy *model.Cycle) error {
	order, err := e.commands.Resolve(cy.MemberNames())
	if err != nil {
		return &ExecutionError{Cycle: cy.Name, Stage: StageResolve, Err: err}
	}
	for _, name := range order {
		cmd, err := e.commands.Get(name)
		if err != nil {
			return &ExecutionError{Cycle: cy.Name, Stage: StageCommand, Command: name, Err: err}
		}
		if err := e.Dispatch(ctx, cmd); err != nil {
			return &ExecutionError{Cycle: cy.Name, Stage: StageCommand, Command: name, Err: err}
		}
	}
	return nil
}

func (e *Engine) setActive(name string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	previous := e.active
	e.active = name
	return previous
}

func runHook(ctx context.Context, hook model.Hook) error {
	if hook == nil {
		return nil
	}
	return hook(ctx)
}
