package command

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/vk/cmdgrid/internal/dag"
	"github.com/vk/cmdgrid/internal/model"
)

// Registry stores normalized command definitions. It is safe for concurrent
// use.
type Registry struct {
	mu           sync.RWMutex
	defs         map[string]*model.Command
	order        []string
	nonInvocable map[string]bool
	graph        *dag.Graph
	defaultPhase string
}

// NewRegistry creates an empty registry. Commands that do not name a phase
// are assigned defaultPhase (model.DefaultPhase when empty).
func NewRegistry(defaultPhase string) *Registry {
	if defaultPhase == "" {
		defaultPhase = model.DefaultPhase
	}
	return &Registry{
		defs:         make(map[string]*model.Command),
		nonInvocable: make(map[string]bool),
		graph:        dag.New(),
		defaultPhase: defaultPhase,
	}
}

// Register normalizes and stores a definition, replacing any earlier
// definition with the same name. The caller's value is not modified.
func (r *Registry) Register(def *model.Command) error {
	if def == nil || def.Name == "" {
		return fmt.Errorf("command name must not be empty")
	}
	c := def.Clone()

	var err error
	for _, list := range []*[]model.CommandRef{&c.After, &c.Before, &c.RequireBefore, &c.Next} {
		if *list, err = r.registerInline(c.Name, *list); err != nil {
			return err
		}
	}

	c.After = mergeRefs(c.After, c.RequireBefore)
	c.Before = mergeRefs(c.Before, c.Next)
	if c.Phase == "" {
		c.Phase = r.defaultPhase
	}
	if slices.Contains(c.AfterNames(), c.Name) || slices.Contains(c.BeforeNames(), c.Name) {
		return fmt.Errorf("command '%s' cannot be ordered relative to itself", c.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old, exists := r.defs[c.Name]
	if exists {
		if c.Cycle == nil {
			c.Cycle = old.Cycle
		}
		r.unlink(old, c)
	} else {
		r.order = append(r.order, c.Name)
	}
	r.graph.AddNode(c.Name)
	for _, next := range c.BeforeNames() {
		if err := r.graph.AddEdge(c.Name, next); err != nil {
			return fmt.Errorf("command '%s': %w", c.Name, err)
		}
	}
	for _, prev := range c.AfterNames() {
		if err := r.graph.AddEdge(prev, c.Name); err != nil {
			return fmt.Errorf("command '%s': %w", c.Name, err)
		}
	}
	r.defs[c.Name] = c
	return nil
}

// registerInline registers every inline definition in refs and returns the
// list with those entries replaced by name references.
func (r *Registry) registerInline(owner string, refs []model.CommandRef) ([]model.CommandRef, error) {
	out := make([]model.CommandRef, 0, len(refs))
	for _, ref := range refs {
		inline, ok := ref.Definition()
		if !ok {
			out = append(out, ref)
			continue
		}
		if inline.Cycle != nil {
			return nil, fmt.Errorf("inline command '%s' in '%s' carries a cycle, register it through the cycle engine", inline.Name, owner)
		}
		if err := r.Register(inline); err != nil {
			return nil, fmt.Errorf("inline command in '%s': %w", owner, err)
		}
		out = append(out, model.Ref(inline.Name))
	}
	return out, nil
}

// unlink removes edges the old definition declared that neither the new
// definition nor the other endpoint still declares. Callers hold r.mu.
func (r *Registry) unlink(old, replacement *model.Command) {
	for _, next := range old.BeforeNames() {
		if slices.Contains(replacement.BeforeNames(), next) {
			continue
		}
		if other, ok := r.defs[next]; ok && slices.Contains(other.AfterNames(), old.Name) {
			continue
		}
		r.graph.RemoveEdge(old.Name, next)
	}
	for _, prev := range old.AfterNames() {
		if slices.Contains(replacement.AfterNames(), prev) {
			continue
		}
		if other, ok := r.defs[prev]; ok && slices.Contains(other.BeforeNames(), old.Name) {
			continue
		}
		r.graph.RemoveEdge(prev, old.Name)
	}
}

// mergeRefs appends the names from extra that are not yet referenced in
// list.
func mergeRefs(list, extra []model.CommandRef) []model.CommandRef {
	names := model.RefNames(list)
	out := model.Refs(names...)
	for _, name := range model.RefNames(extra) {
		if !slices.Contains(names, name) {
			names = append(names, name)
			out = append(out, model.Ref(name))
		}
	}
	return out
}

// Snapshot is a saved copy of a registry's state, see Restore.
type Snapshot struct {
	defs         map[string]*model.Command
	order        []string
	nonInvocable map[string]bool
	graph        *dag.Graph
}

// Snapshot saves the current state of the registry.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make(map[string]*model.Command, len(r.defs))
	for name, c := range r.defs {
		defs[name] = c.Clone()
	}
	return &Snapshot{
		defs:         defs,
		order:        slices.Clone(r.order),
		nonInvocable: maps.Clone(r.nonInvocable),
		graph:        r.graph.Clone(),
	}
}

// Restore returns the registry to a state saved by Snapshot. The snapshot
// must not be restored twice.
func (r *Registry) Restore(s *Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs = s.defs
	r.order = s.order
	r.nonInvocable = s.nonInvocable
	r.graph = s.graph
}

// Lookup returns a copy of the named definition.
func (r *Registry) Lookup(name string) (*model.Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.defs[name]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

// Get is like Lookup but returns ErrUnknownCommand for unknown names.
func (r *Registry) Get(name string) (*model.Command, error) {
	c, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownCommand, name)
	}
	return c, nil
}

// Has reports whether a command is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defs[name]
	return ok
}

// Update applies fn to the stored definition. Only bookkeeping fields such as
// Required and Cycle should be changed this way; relation lists are not
// re-linked.
func (r *Registry) Update(name string, fn func(c *model.Command)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.defs[name]
	if !ok {
		return fmt.Errorf("%w: '%s'", ErrUnknownCommand, name)
	}
	fn(c)
	return nil
}

// Names returns all command names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Triggered returns the commands whose trigger is the given parameter, in
// registration order.
func (r *Registry) Triggered(param string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, name := range r.order {
		if r.defs[name].Trigger == param {
			out = append(out, name)
		}
	}
	return out
}

// SetInvocable marks whether a command may be requested directly.
func (r *Registry) SetInvocable(name string, invocable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if invocable {
		delete(r.nonInvocable, name)
		return
	}
	r.nonInvocable[name] = true
}

// Invocable reports whether a command may be requested directly. Commands
// are invocable unless marked otherwise.
func (r *Registry) Invocable(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.nonInvocable[name]
}

// GoesBefore returns the commands the named command goes before, including
// relations declared by the other side.
func (r *Registry) GoesBefore(name string) []string {
	return r.currentGraph().Before(name)
}

// GoesAfter returns the commands the named command goes after, including
// relations declared by the other side.
func (r *Registry) GoesAfter(name string) []string {
	return r.currentGraph().After(name)
}

// Resolve orders the named commands according to the dependency graph.
func (r *Registry) Resolve(names []string) ([]string, error) {
	return r.currentGraph().Resolve(names)
}

func (r *Registry) currentGraph() *dag.Graph {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.graph
}

// DefaultPhase returns the phase assigned to commands without one.
func (r *Registry) DefaultPhase() string {
	return r.defaultPhase
}
