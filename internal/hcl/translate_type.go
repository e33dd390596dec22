// This file turns parameter type expressions (`string`, `list(number)`,
// `object({ host = string })`) into cty types.

package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// parseType converts a type expression into its cty.Type equivalent. A
// missing expression means "any".
func parseType(expr hcl.Expression) (cty.Type, error) {
	if isNullExpr(expr) {
		return cty.DynamicPseudoType, nil
	}

	switch v := expr.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		if len(v.Traversal) != 1 {
			return cty.NilType, fmt.Errorf("invalid type keyword: expected a single identifier")
		}
		return primitiveType(v.Traversal.RootName())

	case *hclsyntax.FunctionCallExpr:
		if len(v.Args) != 1 {
			return cty.NilType, fmt.Errorf("type constructor %s() takes exactly one argument, got %d", v.Name, len(v.Args))
		}
		if v.Name == "object" {
			return objectType(v.Args[0])
		}
		elem, err := parseType(v.Args[0])
		if err != nil {
			return cty.NilType, err
		}
		if elem.Equals(cty.DynamicPseudoType) {
			return cty.NilType, fmt.Errorf("%s() cannot contain type 'any'", v.Name)
		}
		switch v.Name {
		case "list":
			return cty.List(elem), nil
		case "map":
			return cty.Map(elem), nil
		case "set":
			return cty.Set(elem), nil
		}
		return cty.NilType, fmt.Errorf("unknown type constructor %q", v.Name)
	}
	return cty.NilType, fmt.Errorf("unsupported type expression %T", expr)
}

func primitiveType(keyword string) (cty.Type, error) {
	switch keyword {
	case "string":
		return cty.String, nil
	case "number":
		return cty.Number, nil
	case "bool":
		return cty.Bool, nil
	case "any":
		return cty.DynamicPseudoType, nil
	}
	return cty.NilType, fmt.Errorf("unknown primitive type %q", keyword)
}

func objectType(arg hclsyntax.Expression) (cty.Type, error) {
	obj, ok := arg.(*hclsyntax.ObjectConsExpr)
	if !ok {
		return cty.NilType, fmt.Errorf("object() expects an object literal like { key = type }, got %T", arg)
	}
	attrs := make(map[string]cty.Type, len(obj.Items))
	for _, item := range obj.Items {
		key := objectKey(item.KeyExpr)
		if key == "" {
			return cty.NilType, fmt.Errorf("object type keys must be identifiers or quoted strings")
		}
		t, err := parseType(item.ValueExpr)
		if err != nil {
			return cty.NilType, fmt.Errorf("object attribute '%s': %w", key, err)
		}
		attrs[key] = t
	}
	return cty.Object(attrs), nil
}

func objectKey(expr hclsyntax.Expression) string {
	wrapper, ok := expr.(*hclsyntax.ObjectConsKeyExpr)
	if !ok {
		return ""
	}
	switch k := wrapper.Wrapped.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		if len(k.Traversal) == 1 {
			return k.Traversal.RootName()
		}
	case *hclsyntax.TemplateExpr:
		if len(k.Parts) == 1 {
			if lit, ok := k.Parts[0].(*hclsyntax.LiteralValueExpr); ok && lit.Val.Type().Equals(cty.String) {
				return lit.Val.AsString()
			}
		}
	}
	return ""
}

// isNullExpr reports whether expr is missing. gohcl fills absent optional
// expression attributes with a static null.
func isNullExpr(expr hcl.Expression) bool {
	if expr == nil {
		return true
	}
	if len(expr.Variables()) > 0 {
		return false
	}
	if _, ok := expr.(*hclsyntax.ScopeTraversalExpr); ok {
		return false
	}
	v, diags := expr.Value(nil)
	return !diags.HasErrors() && v.IsNull()
}
