package env_vars

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vk/cmdgrid/internal/ctxlog"
	"github.com/vk/cmdgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// EnvName returns the environment variable that feeds a parameter with the
// given bind name.
func EnvName(prefix, bind string) string {
	return prefix + strings.ToUpper(strings.ReplaceAll(bind, "-", "_"))
}

// OnRunEnvVars copies matching environment variables into the value store.
// Parameters that already hold an explicit value are left alone.
func OnRunEnvVars(ctx context.Context, rt *registry.Runtime) error {
	logger := ctxlog.FromContext(ctx)
	loaded := 0
	for _, def := range rt.Values.Registry().Definitions() {
		if rt.Values.IsSet(def.Name) {
			continue
		}
		key := EnvName(rt.EnvPrefix, def.Bind)
		raw, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		if err := rt.Values.SetString(ctx, def.Name, raw); err != nil {
			return fmt.Errorf("environment variable %s: %w", key, err)
		}
		logger.Debug("Parameter loaded from environment.", "parameter", def.Name, "variable", key)
		loaded++
	}
	logger.Info("Environment variables loaded", "prefix", rt.EnvPrefix, "count", loaded)
	return nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler("OnRunEnvVars", &registry.RegisteredHandler{Fn: OnRunEnvVars})
}
