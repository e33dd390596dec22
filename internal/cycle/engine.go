package cycle

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/vk/cmdgrid/internal/command"
	"github.com/vk/cmdgrid/internal/model"
	"github.com/vk/cmdgrid/internal/runner"
)

// DefaultMaxDepth is the nesting limit used when none is configured.
const DefaultMaxDepth = 5

// Engine validates, stores and executes cycles.
type Engine struct {
	commands *command.Registry
	runner   *runner.Runner
	maxDepth int

	mu sync.RWMutex
	state
	active string
}

// state is the registration state of an Engine. It is replaced as a whole so
// a failed registration can be undone.
type state struct {
	cycles map[string]*model.Cycle
	// owners lists the hosting commands in attachment order.
	owners []string
	// base holds each host's own requirements, before aggregation.
	base map[string][]string
}

func (s state) clone() state {
	return state{
		cycles: maps.Clone(s.cycles),
		owners: slices.Clone(s.owners),
		base:   maps.Clone(s.base),
	}
}

// New creates an Engine. A maxDepth of zero or less selects DefaultMaxDepth.
func New(commands *command.Registry, run *runner.Runner, maxDepth int) *Engine {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Engine{
		commands: commands,
		runner:   run,
		maxDepth: maxDepth,
		state: state{
			cycles: make(map[string]*model.Cycle),
			base:   make(map[string][]string),
		},
	}
}

// MaxDepth returns the configured nesting limit.
func (e *Engine) MaxDepth() int {
	return e.maxDepth
}

// Cycle returns the cycle attached to the named command, if any.
func (e *Engine) Cycle(parent string) (*model.Cycle, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.cycles[parent]
	return c, ok
}

// ActiveCycle returns the name of the innermost cycle currently executing,
// or an empty string.
func (e *Engine) ActiveCycle() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active
}

// RegisterCommand registers a command definition and attaches its cycle, if
// it has one. Inline definitions in relation lists are registered the same
// way, so their cycles are attached too. Every cycle tree is validated again
// afterwards, since replacing a command can move a member to another phase or
// change the parameters it requires. On failure the command registry and the
// engine are left as they were.
func (e *Engine) RegisterCommand(def *model.Command) error {
	if def == nil {
		return fmt.Errorf("command definition must not be nil")
	}
	return e.atomically(func() error {
		return e.registerCommand(def)
	})
}

// Register attaches cy to the named command. See the package documentation
// for the validation rules. On failure nothing is changed, including inline
// members registered along the way.
func (e *Engine) Register(parent string, cy *model.Cycle) error {
	return e.atomically(func() error {
		return e.register(parent, cy)
	})
}

// atomically runs fn and restores the command registry and the engine state
// when it fails.
func (e *Engine) atomically(fn func() error) error {
	commands := e.commands.Snapshot()
	e.mu.RLock()
	saved := e.state.clone()
	e.mu.RUnlock()

	if err := fn(); err != nil {
		e.commands.Restore(commands)
		e.mu.Lock()
		e.state = saved
		e.mu.Unlock()
		return err
	}
	return nil
}

func (e *Engine) registerCommand(def *model.Command) error {
	c := def.Clone()
	for _, list := range []*[]model.CommandRef{&c.After, &c.Before, &c.RequireBefore, &c.Next} {
		refs := make([]model.CommandRef, 0, len(*list))
		for _, ref := range *list {
			if inline, ok := ref.Definition(); ok {
				if err := e.registerCommand(inline); err != nil {
					return fmt.Errorf("inline command in '%s': %w", c.Name, err)
				}
				ref = model.Ref(inline.Name)
			}
			refs = append(refs, ref)
		}
		*list = refs
	}

	cy := c.Cycle
	c.Cycle = nil
	if err := e.commands.Register(c); err != nil {
		return err
	}
	if err := e.revalidate(c.Name); err != nil {
		return err
	}
	if cy == nil {
		return nil
	}
	return e.register(c.Name, cy)
}

// revalidate checks every cycle tree again after name was (re)registered and
// recomputes the aggregated requirements of every host.
func (e *Engine) revalidate(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.state.clone()
	if slices.Contains(next.owners, name) {
		// A fresh definition of a host carries only its own requirements.
		c, _ := e.commands.Lookup(name)
		next.base[name] = slices.Clone(c.Required)
	}
	return e.commit(next)
}

func (e *Engine) register(parent string, cy *model.Cycle) error {
	host, ok := e.commands.Lookup(parent)
	if !ok {
		return fmt.Errorf("cannot attach cycle: %w: '%s'", command.ErrUnknownCommand, parent)
	}
	if cy == nil {
		return &ValidationError{Kind: ErrMissingField, Command: parent, Message: fmt.Sprintf("command '%s' has no cycle definition", parent)}
	}

	normalized := *cy
	if normalized.Name == "" {
		normalized.Name = parent
	}
	if normalized.Condition == nil {
		return missingField(parent, normalized.Name, "condition")
	}
	if len(model.RefNames(normalized.Commands)) == 0 {
		return missingField(parent, normalized.Name, "commands")
	}

	members, err := e.registerInline(host, normalized.Commands)
	if err != nil {
		return err
	}
	normalized.Commands = members

	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok := e.cycles[parent]; ok && !existing.Same(&normalized) {
		return &ValidationError{
			Kind:    ErrConflict,
			Cycle:   normalized.Name,
			Command: parent,
			Message: fmt.Sprintf("command '%s' already has a different cycle '%s'", parent, existing.Name),
		}
	} else if ok {
		// Identical re-registration keeps the stored definition.
		normalized = *existing
	}

	next := e.state.clone()
	next.cycles[parent] = &normalized
	if !slices.Contains(next.owners, parent) {
		next.owners = append(next.owners, parent)
	}
	if _, ok := next.base[parent]; !ok {
		next.base[parent] = slices.Clone(host.Required)
	}
	return e.commit(next)
}

// commit validates every tree of next and, when all of them pass, stores next
// and updates the hosts and members in the command registry. Attaching a
// cycle can change the tree of every cycle that (indirectly) contains the
// parent, so nothing is stored unless all trees pass. Callers hold e.mu.
func (e *Engine) commit(next state) error {
	results := make(map[string]walkResult, len(next.owners))
	for _, owner := range next.owners {
		res, err := e.walk(owner, next)
		if err != nil {
			return err
		}
		results[owner] = res
	}

	e.state = next
	for _, owner := range next.owners {
		res := results[owner]
		if err := e.commands.Update(owner, func(c *model.Command) {
			c.Cycle = next.cycles[owner]
			c.Required = model.AppendUnique(slices.Clone(next.base[owner]), res.required...)
		}); err != nil {
			return err
		}
		for _, member := range res.members {
			e.commands.SetInvocable(member, false)
		}
	}
	return nil
}

// registerInline registers inline member definitions, including their own
// cycles and relation lists, and returns the members as name references.
// Members without a phase inherit the phase of host.
func (e *Engine) registerInline(host *model.Command, refs []model.CommandRef) ([]model.CommandRef, error) {
	out := make([]model.CommandRef, 0, len(refs))
	for _, ref := range refs {
		def, ok := ref.Definition()
		if !ok {
			if ref.Name() != "" {
				out = append(out, ref)
			}
			continue
		}
		if def.Phase == "" {
			def = def.Clone()
			def.Phase = host.Phase
		}
		if err := e.registerCommand(def); err != nil {
			return nil, fmt.Errorf("inline member of cycle on '%s': %w", host.Name, err)
		}
		out = append(out, model.Ref(def.Name))
	}
	return out, nil
}

type walkResult struct {
	required []string
	members  []string
}

// walk traverses the cycle tree hosted by owner, checking phases and depth
// and collecting the members and their required parameters. The owner's own
// cycle is level 1. Hosts nested in the tree contribute their own
// requirements; their members are collected by the recursion.
func (e *Engine) walk(owner string, st state) (walkResult, error) {
	var res walkResult
	host, ok := e.commands.Lookup(owner)
	if !ok {
		return res, fmt.Errorf("cycle host: %w: '%s'", command.ErrUnknownCommand, owner)
	}

	var visit func(cy *model.Cycle, level int) error
	visit = func(cy *model.Cycle, level int) error {
		if level > e.maxDepth {
			return &ValidationError{
				Kind:    ErrDepthExceeded,
				Cycle:   cy.Name,
				Command: owner,
				Message: fmt.Sprintf("cycle '%s' reached through command '%s' is nested %d levels deep, maximum is %d", cy.Name, owner, level, e.maxDepth),
			}
		}
		for _, name := range cy.MemberNames() {
			member, ok := e.commands.Lookup(name)
			if !ok {
				return fmt.Errorf("cycle '%s': member %w: '%s'", cy.Name, command.ErrUnknownCommand, name)
			}
			if member.Phase != host.Phase {
				return &ValidationError{
					Kind:    ErrPhaseMismatch,
					Cycle:   cy.Name,
					Command: name,
					Message: fmt.Sprintf("command '%s' in cycle '%s' runs in phase '%s' but the cycle belongs to phase '%s'", name, cy.Name, member.Phase, host.Phase),
				}
			}
			required := member.Required
			if own, ok := st.base[name]; ok {
				required = own
			}
			res.members = model.AppendUnique(res.members, name)
			res.required = model.AppendUnique(res.required, required...)
			if inner, ok := st.cycles[name]; ok {
				if err := visit(inner, level+1); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := visit(st.cycles[owner], 1); err != nil {
		return res, err
	}
	return res, nil
}

func missingField(parent, cycleName, field string) error {
	return &ValidationError{
		Kind:    ErrMissingField,
		Cycle:   cycleName,
		Command: parent,
		Message: fmt.Sprintf("cycle '%s' on command '%s' is missing '%s'", cycleName, parent, field),
	}
}
