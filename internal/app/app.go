package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/cmdgrid/internal/config"
	"github.com/vk/cmdgrid/internal/ctxlog"
	"github.com/vk/cmdgrid/internal/registry"
	"github.com/vk/cmdgrid/internal/session"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	registry   *registry.Registry
	model      *config.Model
	converter  config.Converter
	session    *session.Session
	runtime    *registry.Runtime
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It loads the
// definitions, registers the Go modules, checks that both agree and builds
// the session. Any mismatch is a startup error and panics.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	cfgModel, converter, err := loader.Load(ctx, cfg.Definitions...)
	if err != nil {
		panic(fmt.Errorf("failed to load definitions: %w", err))
	}
	logger.Debug("Definitions loaded and translated into unified model.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	if err := reg.Validate(ctx, cfgModel); err != nil {
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	a := &App{
		ctx:       ctx,
		outW:      outW,
		logger:    logger,
		config:    cfg,
		registry:  reg,
		model:     cfgModel,
		converter: converter,
	}
	if err := a.build(ctx); err != nil {
		panic(fmt.Errorf("failed to build session: %w", err))
	}
	logger.Debug("Session built.", "run_id", a.session.ID())
	return a
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Session returns the application's session.
func (a *App) Session() *session.Session {
	return a.session
}
