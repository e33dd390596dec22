package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/cmdgrid/internal/config"
	"github.com/vk/cmdgrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Validate performs a strict parity check between the loaded definitions and
// the registered Go handlers. Every handler a command or cycle names must
// exist, and every parameter a handler reads must be declared with a
// compatible type.
func (r *Registry) Validate(ctx context.Context, model *config.Model) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	params := make(map[string]*config.Parameter, len(model.Parameters))
	for _, p := range model.Parameters {
		params[p.Name] = p
	}

	checked := make(map[string]bool)
	var visit func(cmd *config.Command)
	visit = func(cmd *config.Command) {
		for _, name := range cmd.Handlers() {
			handler, ok := r.handlers[name]
			if !ok {
				errs = append(errs, fmt.Sprintf("command '%s': handler '%s' is not registered", cmd.Name, name))
				continue
			}
			if checked[name] {
				continue
			}
			checked[name] = true

			for paramName, want := range handler.Params {
				def, ok := params[paramName]
				if !ok {
					errs = append(errs, fmt.Sprintf("handler '%s' (used by command '%s'): reads parameter '%s' which is not declared", name, cmd.Name, paramName))
					continue
				}
				if want.Equals(cty.DynamicPseudoType) {
					continue
				}
				if def.Type.Equals(cty.DynamicPseudoType) {
					logger.Warn("Parameter has 'type = any', which disables static type checking. Consider using a specific type like 'string', 'number', or 'bool'.", "parameter", paramName, "handler", name)
					continue
				}
				if !def.Type.Equals(want) {
					errs = append(errs, fmt.Sprintf("handler '%s', parameter '%s': type mismatch. Handler requires '%s' but the definition declares '%s'",
						name, paramName, want.FriendlyName(), def.Type.FriendlyName()))
				}
			}
		}
		if cmd.Cycle != nil {
			for _, inline := range cmd.Cycle.Inline {
				visit(inline)
			}
		}
	}
	for _, cmd := range model.Commands {
		visit(cmd)
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
