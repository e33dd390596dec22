package registry

import (
	"fmt"
	"sort"
)

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds all the registered handlers for a single application
// instance.
type Registry struct {
	handlers map[string]*RegisteredHandler
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		handlers: make(map[string]*RegisteredHandler),
	}
}

// Handler returns the handler registered under name.
func (r *Registry) Handler(name string) (*RegisteredHandler, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("handler '%s' is not registered", name)
	}
	return h, nil
}

// Names returns every registered handler name in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
