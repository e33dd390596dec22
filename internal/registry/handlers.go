package registry

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/cmdgrid/internal/param"
	"github.com/zclconf/go-cty/cty"
)

// Runtime is what a handler gets to work with while a run is in progress.
type Runtime struct {
	// Values is the session's value store.
	Values *param.Store
	// Out is the application's user-facing output.
	Out io.Writer
	// EnvPrefix is prepended to bind names when reading the environment.
	EnvPrefix string
}

// Handler is the Go implementation behind a command action or a cycle hook.
type Handler func(ctx context.Context, rt *Runtime) error

// RegisteredHandler holds a handler and the parameters it reads.
type RegisteredHandler struct {
	Fn Handler
	// Params maps each parameter the handler reads to the type it expects.
	// Definitions that use the handler must declare these parameters.
	Params map[string]cty.Type
}

// RegisterHandler registers a Go function under the name definitions use to
// refer to it.
func (r *Registry) RegisterHandler(name string, handler *RegisteredHandler) {
	if _, exists := r.handlers[name]; exists {
		panic(fmt.Sprintf("handler with name '%s' already registered", name))
	}
	if handler == nil || handler.Fn == nil {
		panic(fmt.Sprintf("handler '%s' has no function", name))
	}
	slog.Debug("Registering handler.", "name", name)
	r.handlers[name] = handler
}
