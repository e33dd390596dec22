package config

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of all loaded
// definitions.
type Model struct {
	Phases     *Phases
	Parameters []*Parameter
	Commands   []*Command
}

// Phases is the format-agnostic representation of the `phases` block.
type Phases struct {
	Order   []string
	Default string
}

// Parameter is the format-agnostic representation of a `parameter` block.
type Parameter struct {
	Name        string
	Description string
	Type        cty.Type
	Default     *cty.Value
	Aliases     []string
	Bind        string
	Required    bool
	Immutable   bool
	Switch      []string
}

// Command is the format-agnostic representation of a `command` block. Hook
// and action fields hold names of registered Go handlers.
type Command struct {
	Name          string
	Description   string
	Action        string
	Requires      []string
	After         []string
	Before        []string
	RequireBefore []string
	Next          []string
	Phase         string
	Trigger       string
	Framework     bool
	Cycle         *Cycle
}

// Cycle is the format-agnostic representation of a `cycle` block.
type Cycle struct {
	Name      string
	Init      string
	LoopStart string
	LoopEnd   string
	End       string
	// Condition is evaluated before every iteration.
	Condition hcl.Expression
	// ConditionSource is the source text of Condition, used to tell two
	// otherwise identical cycles apart.
	ConditionSource string
	// Commands lists members by name; Inline holds members defined in place.
	Commands []string
	Inline   []*Command
}

// Handlers returns every handler name referenced by the command, including
// its cycle hooks and inline members, in declaration order.
func (c *Command) Handlers() []string {
	var out []string
	add := func(names ...string) {
		for _, n := range names {
			if n != "" {
				out = append(out, n)
			}
		}
	}
	add(c.Action)
	if c.Cycle != nil {
		add(c.Cycle.Init, c.Cycle.LoopStart, c.Cycle.LoopEnd, c.Cycle.End)
		for _, inline := range c.Cycle.Inline {
			add(inline.Handlers()...)
		}
	}
	return out
}
