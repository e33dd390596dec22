package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/cmdgrid/internal/config"
	"github.com/zclconf/go-cty/cty"
)

// rootVariable is the only variable a condition expression may reference.
const rootVariable = "param"

// translator converts decoded blocks of a single file into the
// format-agnostic config model.
type translator struct {
	src  []byte
	file string
}

func (t *translator) parameter(p *parameterBlock) (*config.Parameter, error) {
	ty, err := parseType(p.Type)
	if err != nil {
		return nil, fmt.Errorf("%s: parameter '%s': %w", t.file, p.Name, err)
	}

	var def *cty.Value
	if !isNullExpr(p.Default) {
		val, diags := p.Default.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("%s: invalid default value for parameter '%s': %w", t.file, p.Name, diags)
		}
		if !val.IsNull() {
			def = &val
		}
	}

	return &config.Parameter{
		Name:        p.Name,
		Description: p.Description,
		Type:        ty,
		Default:     def,
		Aliases:     p.Aliases,
		Bind:        p.Bind,
		Required:    p.Required,
		Immutable:   p.Immutable,
		Switch:      p.Switch,
	}, nil
}

func (t *translator) command(c *commandBlock) (*config.Command, error) {
	cmd := &config.Command{
		Name:          c.Name,
		Description:   c.Description,
		Action:        c.Action,
		Requires:      c.Requires,
		After:         c.After,
		Before:        c.Before,
		RequireBefore: c.RequireBefore,
		Next:          c.Next,
		Phase:         c.Phase,
		Trigger:       c.Trigger,
		Framework:     c.Framework,
	}
	if c.Cycle == nil {
		return cmd, nil
	}

	cy, err := t.cycle(c.Name, c.Cycle)
	if err != nil {
		return nil, err
	}
	cmd.Cycle = cy
	return cmd, nil
}

func (t *translator) cycle(owner string, c *cycleBlock) (*config.Cycle, error) {
	cy := &config.Cycle{
		Name:      c.Name,
		Init:      c.Init,
		LoopStart: c.LoopStart,
		LoopEnd:   c.LoopEnd,
		End:       c.End,
		Commands:  c.Commands,
	}

	if !isNullExpr(c.Condition) {
		if err := checkConditionVariables(c.Condition); err != nil {
			return nil, fmt.Errorf("%s: condition of cycle '%s' on command '%s': %w", t.file, c.Name, owner, err)
		}
		cy.Condition = c.Condition
		cy.ConditionSource = string(c.Condition.Range().SliceBytes(t.src))
	}

	for _, inline := range c.Inline {
		member, err := t.command(inline)
		if err != nil {
			return nil, err
		}
		cy.Inline = append(cy.Inline, member)
	}
	return cy, nil
}

// checkConditionVariables rejects references to anything other than
// `param.<name>`.
func checkConditionVariables(expr hcl.Expression) error {
	for _, traversal := range expr.Variables() {
		if root := traversal.RootName(); root != rootVariable {
			return fmt.Errorf("unknown variable '%s', only '%s.<name>' may be referenced", root, rootVariable)
		}
	}
	return nil
}
