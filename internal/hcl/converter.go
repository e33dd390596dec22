package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/cmdgrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Converter is the HCL-specific implementation of the config.Converter interface.
type Converter struct {
	functions map[string]function.Function
}

// NewConverter creates a new HCL converter.
func NewConverter() *Converter {
	return &Converter{
		functions: map[string]function.Function{
			"abs":      stdlib.AbsoluteFunc,
			"coalesce": stdlib.CoalesceFunc,
			"contains": stdlib.ContainsFunc,
			"length":   stdlib.LengthFunc,
			"lower":    stdlib.LowerFunc,
			"max":      stdlib.MaxFunc,
			"min":      stdlib.MinFunc,
			"strlen":   stdlib.StrlenFunc,
			"upper":    stdlib.UpperFunc,
		},
	}
}

// EvalBool evaluates expr with params bound to the `param` variable. The
// result must be a known, non-null value convertible to bool.
func (c *Converter) EvalBool(ctx context.Context, expr hcl.Expression, params cty.Value) (bool, error) {
	if expr == nil {
		return false, fmt.Errorf("no condition expression")
	}
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{rootVariable: params},
		Functions: c.functions,
	}

	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return false, fmt.Errorf("failed to evaluate condition at %s: %w", expr.Range(), diags)
	}
	if !val.IsKnown() || val.IsNull() {
		return false, fmt.Errorf("condition at %s evaluated to null", expr.Range())
	}

	bv, err := convert.Convert(val, cty.Bool)
	if err != nil {
		return false, fmt.Errorf("condition at %s must be a bool: %w", expr.Range(), err)
	}
	ctxlog.FromContext(ctx).Debug("Evaluated cycle condition.", "range", expr.Range().String(), "result", bv.True())
	return bv.True(), nil
}
