package param

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// SetHook is notified after a parameter received a new value.
type SetHook func(ctx context.Context, name string) error

// Store holds the parameter values of a single run.
type Store struct {
	mu     sync.RWMutex
	reg    *Registry
	values map[string]cty.Value
	hooks  []SetHook
}

// NewStore creates an empty value store backed by the given registry.
func NewStore(reg *Registry) *Store {
	return &Store{
		reg:    reg,
		values: make(map[string]cty.Value),
	}
}

// OnSet subscribes a hook. Hooks run in subscription order after every
// successful Set, outside of the store's lock, so they may read or write the
// store themselves.
func (s *Store) OnSet(hook SetHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Has reports whether the parameter has an explicit value or a non-null
// default.
func (s *Store) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// IsSet reports whether the parameter was given an explicit value, ignoring
// defaults.
func (s *Store) IsSet(name string) bool {
	def, ok := s.reg.Lookup(name)
	if !ok {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok = s.values[def.Name]
	return ok
}

// Get returns the explicit value of the parameter, falling back to its
// default.
func (s *Store) Get(name string) (cty.Value, bool) {
	def, ok := s.reg.Lookup(name)
	if !ok {
		return cty.NilVal, false
	}
	s.mu.RLock()
	v, ok := s.values[def.Name]
	s.mu.RUnlock()
	if ok {
		return v, true
	}
	if def.Default != nil && !def.Default.IsNull() {
		return *def.Default, true
	}
	return cty.NilVal, false
}

// Set assigns a value, converting it to the declared type. A null value
// clears the parameter.
func (s *Store) Set(ctx context.Context, name string, value cty.Value) error {
	def, ok := s.reg.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: '%s'", ErrUnknownParameter, name)
	}
	if value.IsNull() {
		return s.Unset(def.Name)
	}
	converted, err := convert.Convert(value, def.Type)
	if err != nil {
		return fmt.Errorf("parameter '%s': value is not a valid %s: %w", def.Name, def.Type.FriendlyName(), err)
	}

	s.mu.Lock()
	if current, exists := s.values[def.Name]; exists && def.Immutable {
		if current.RawEquals(converted) {
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()
		return fmt.Errorf("%w: '%s' already holds a different value", ErrImmutable, def.Name)
	}
	for _, partner := range def.Switch {
		if _, set := s.values[partner]; set {
			s.mu.Unlock()
			return fmt.Errorf("%w: '%s' cannot be set while '%s' is set", ErrSwitchConflict, def.Name, partner)
		}
	}
	s.values[def.Name] = converted
	hooks := append([]SetHook(nil), s.hooks...)
	s.mu.Unlock()

	for _, hook := range hooks {
		if err := hook(ctx, def.Name); err != nil {
			return err
		}
	}
	return nil
}

// SetString parses a raw command-line or environment value into the declared
// type of the parameter and sets it.
func (s *Store) SetString(ctx context.Context, name, raw string) error {
	def, ok := s.reg.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: '%s'", ErrUnknownParameter, name)
	}
	v := cty.StringVal(raw)
	if !def.Type.Equals(cty.DynamicPseudoType) && !def.Type.Equals(cty.String) {
		converted, err := convert.Convert(v, def.Type)
		if err != nil {
			return fmt.Errorf("parameter '%s': cannot parse %q as %s: %w", def.Name, raw, def.Type.FriendlyName(), err)
		}
		v = converted
	}
	return s.Set(ctx, def.Name, v)
}

// Unset removes an explicit value. Immutable parameters cannot be unset once
// they hold a value.
func (s *Store) Unset(name string) error {
	def, ok := s.reg.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: '%s'", ErrUnknownParameter, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.values[def.Name]; exists && def.Immutable {
		return fmt.Errorf("%w: '%s' cannot be unset", ErrImmutable, def.Name)
	}
	delete(s.values, def.Name)
	return nil
}

// Values returns every parameter that currently has a value (explicit or
// default), keyed by name.
func (s *Store) Values() map[string]cty.Value {
	out := make(map[string]cty.Value)
	for _, name := range s.reg.Names() {
		if v, ok := s.Get(name); ok {
			out[name] = v
		}
	}
	return out
}

// SortedNames returns the names of Values in lexical order.
func (s *Store) SortedNames() []string {
	values := s.Values()
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Variables exposes the store as a cty object with one attribute per
// registered parameter. Parameters without a value are null.
func (s *Store) Variables() cty.Value {
	attrs := make(map[string]cty.Value)
	for _, def := range s.reg.Definitions() {
		if v, ok := s.Get(def.Name); ok {
			attrs[def.Name] = v
			continue
		}
		attrs[def.Name] = cty.NullVal(def.Type)
	}
	return cty.ObjectVal(attrs)
}

// Registry returns the registry backing the store.
func (s *Store) Registry() *Registry {
	return s.reg
}
