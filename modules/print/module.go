package print

import (
	"context"
	"fmt"

	"github.com/vk/cmdgrid/internal/ctxlog"
	"github.com/vk/cmdgrid/internal/registry"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnRunPrint writes every parameter that holds a value, sorted by name.
func OnRunPrint(ctx context.Context, rt *registry.Runtime) error {
	ctxlog.FromContext(ctx).Info("Printing parameters")

	names := rt.Values.SortedNames()
	if len(names) == 0 {
		fmt.Fprintln(rt.Out, "      (no parameters set)")
		return nil
	}

	values := rt.Values.Values()
	for _, name := range names {
		v := values[name]
		text, err := ctyjson.Marshal(v, v.Type())
		if err != nil {
			return fmt.Errorf("failed to render parameter '%s': %w", name, err)
		}
		fmt.Fprintf(rt.Out, "      %s = %s\n", name, text)
	}
	return nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler("OnRunPrint", &registry.RegisteredHandler{Fn: OnRunPrint})
}
