package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/cmdgrid/internal/config"
	"github.com/vk/cmdgrid/internal/ctxlog"
	"github.com/vk/cmdgrid/internal/model"
	"github.com/vk/cmdgrid/internal/param"
	"github.com/vk/cmdgrid/internal/registry"
	"github.com/vk/cmdgrid/internal/session"
)

// build creates the session from the loaded model: phases first, then
// parameters, then commands, and finally cycles with inner cycles attached
// before the cycles that contain them.
func (a *App) build(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	opts := session.Options{MaxCycleDepth: a.config.MaxCycleDepth}
	if a.model.Phases != nil {
		opts.Phases = a.model.Phases.Order
		opts.DefaultPhase = a.model.Phases.Default
	}
	s, err := session.New(opts)
	if err != nil {
		return err
	}
	a.session = s
	a.runtime = &registry.Runtime{Values: s.Store(), Out: a.outW, EnvPrefix: a.config.EnvPrefix}
	logger.Debug("Session created.", "phases", s.Scheduler().Phases())

	for _, p := range a.model.Parameters {
		err := s.RegisterParameter(param.Definition{
			Name:        p.Name,
			Description: p.Description,
			Aliases:     p.Aliases,
			Bind:        p.Bind,
			Type:        p.Type,
			Default:     p.Default,
			Required:    p.Required,
			Immutable:   p.Immutable,
			Switch:      p.Switch,
		})
		if err != nil {
			return fmt.Errorf("parameter '%s': %w", p.Name, err)
		}
	}
	logger.Debug("Parameters registered.", "count", len(a.model.Parameters))

	byName := make(map[string]*config.Command, len(a.model.Commands))
	for _, c := range a.model.Commands {
		cmd, err := a.command(c, false)
		if err != nil {
			return err
		}
		if err := s.RegisterCommand(cmd); err != nil {
			return fmt.Errorf("command '%s': %w", c.Name, err)
		}
		byName[c.Name] = c
	}
	logger.Debug("Commands registered.", "count", len(a.model.Commands))

	attached := make(map[string]bool)
	var attach func(c *config.Command) error
	attach = func(c *config.Command) error {
		if attached[c.Name] || c.Cycle == nil {
			return nil
		}
		attached[c.Name] = true
		for _, member := range c.Cycle.Commands {
			if inner, ok := byName[member]; ok {
				if err := attach(inner); err != nil {
					return err
				}
			}
		}
		cy, err := a.cycle(c.Cycle)
		if err != nil {
			return fmt.Errorf("command '%s': %w", c.Name, err)
		}
		if err := s.Cycles().Register(c.Name, cy); err != nil {
			return err
		}
		logger.Debug("Cycle attached.", "command", c.Name, "cycle", cy.Name)
		return nil
	}
	for _, c := range a.model.Commands {
		if err := attach(c); err != nil {
			return err
		}
	}
	return nil
}

// command converts a definition into a model command. Cycles are only
// converted when withCycle is set; top-level cycles are attached later.
func (a *App) command(c *config.Command, withCycle bool) (*model.Command, error) {
	cmd := &model.Command{
		Name:          c.Name,
		Description:   c.Description,
		Required:      c.Requires,
		After:         model.Refs(c.After...),
		Before:        model.Refs(c.Before...),
		RequireBefore: model.Refs(c.RequireBefore...),
		Next:          model.Refs(c.Next...),
		Phase:         c.Phase,
		Trigger:       c.Trigger,
		Framework:     c.Framework,
	}
	if c.Action != "" {
		fn, err := a.handler(c.Action)
		if err != nil {
			return nil, fmt.Errorf("command '%s': %w", c.Name, err)
		}
		cmd.Action = model.Action(fn)
	}
	if withCycle && c.Cycle != nil {
		cy, err := a.cycle(c.Cycle)
		if err != nil {
			return nil, fmt.Errorf("command '%s': %w", c.Name, err)
		}
		cmd.Cycle = cy
	}
	return cmd, nil
}

func (a *App) cycle(c *config.Cycle) (*model.Cycle, error) {
	cy := &model.Cycle{
		Name:     c.Name,
		Commands: model.Refs(c.Commands...),
		Source:   cycleSource(c),
	}

	hooks := []struct {
		name string
		dst  *model.Hook
	}{
		{c.Init, &cy.Init},
		{c.LoopStart, &cy.LoopStart},
		{c.LoopEnd, &cy.LoopEnd},
		{c.End, &cy.End},
	}
	for _, h := range hooks {
		if h.name == "" {
			continue
		}
		fn, err := a.handler(h.name)
		if err != nil {
			return nil, fmt.Errorf("cycle '%s': %w", c.Name, err)
		}
		*h.dst = model.Hook(fn)
	}

	if c.Condition != nil {
		expr := c.Condition
		cy.Condition = func(ctx context.Context) (bool, error) {
			return a.converter.EvalBool(ctx, expr, a.session.Store().Variables())
		}
	}

	for _, inline := range c.Inline {
		member, err := a.command(inline, true)
		if err != nil {
			return nil, err
		}
		cy.Commands = append(cy.Commands, model.Inline(member))
	}
	return cy, nil
}

// handler binds a registered handler to the app's runtime.
func (a *App) handler(name string) (func(ctx context.Context) error, error) {
	h, err := a.registry.Handler(name)
	if err != nil {
		return nil, err
	}
	fn := h.Fn
	return func(ctx context.Context) error {
		return fn(ctx, a.runtime)
	}, nil
}

// cycleSource fingerprints a cycle definition. Every closure built here
// shares one code pointer, so the handler names and the condition text are
// what tell two definitions apart.
func cycleSource(c *config.Cycle) string {
	parts := []string{
		"condition=" + c.ConditionSource,
		"init=" + c.Init,
		"loop_start=" + c.LoopStart,
		"loop_end=" + c.LoopEnd,
		"end=" + c.End,
	}
	for _, inline := range c.Inline {
		parts = append(parts, "inline="+inline.Name)
	}
	return strings.Join(parts, ";")
}
