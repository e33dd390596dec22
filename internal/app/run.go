package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/cmdgrid/internal/ctxlog"
)

// envHandler is the handler that imports parameters from the environment.
const envHandler = "OnRunEnvVars"

// Run applies the configured values, queues the requested commands and
// executes every phase.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.config.HealthcheckPort)
		defer func() {
			if err := a.closeHealthcheckServer(); err != nil {
				a.logger.Error("Health check server shutdown failed", "error", err)
			}
		}()
	}

	if err := a.prepare(ctx); err != nil {
		return err
	}

	a.logger.Info("🚀 Starting run...", "run_id", a.session.ID())
	if err := a.session.Run(ctx); err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	a.logger.Info("🏁 Execution finished.")
	a.logger.Debug("App.Run method finished.")
	return nil
}

// prepare fills the value store and the phase queues. Command-line values
// win over the environment, which wins over the settings file.
func (a *App) prepare(ctx context.Context) error {
	store := a.session.Store()

	for _, kv := range a.config.Values {
		name, value, err := SplitAssignment(kv)
		if err != nil {
			return err
		}
		if err := store.SetString(ctx, name, value); err != nil {
			return err
		}
	}

	if a.config.EnvPrefix != "" {
		h, err := a.registry.Handler(envHandler)
		if err != nil {
			return fmt.Errorf("env_prefix is set but %w", err)
		}
		if err := h.Fn(ctx, a.runtime); err != nil {
			return err
		}
	}

	names := make([]string, 0, len(a.config.FileValues))
	for name := range a.config.FileValues {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if store.IsSet(name) {
			continue
		}
		if err := store.SetString(ctx, name, a.config.FileValues[name]); err != nil {
			return fmt.Errorf("settings value: %w", err)
		}
	}

	return a.session.Invoke(ctx, a.config.Commands...)
}
