package config

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the interface for a format-specific definition loader.
type Loader interface {
	// Load reads definitions from the given paths, translates them into the
	// format-agnostic model, and returns a matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter is the interface for format-specific expression evaluation. It
// acts as the bridge between raw definitions and the values of a run.
type Converter interface {
	// EvalBool evaluates a condition expression against the parameter values,
	// which are exposed to the expression as the `param` variable.
	EvalBool(ctx context.Context, expr hcl.Expression, params cty.Value) (bool, error)
}
