package param

import (
	"fmt"
	"slices"
	"sync"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Definition describes a single parameter.
type Definition struct {
	Name        string
	Description string
	// Aliases are alternative names accepted on the command line.
	Aliases []string
	// Bind is the name used by configuration sources such as environment
	// variables. It defaults to Name.
	Bind string
	// Type is the declared value type. cty.NilType is treated as "any".
	Type    cty.Type
	Default *cty.Value

	Required  bool
	Immutable bool
	// Switch lists the parameters that are mutually exclusive with this one.
	Switch []string
}

func (d Definition) clone() Definition {
	d.Aliases = slices.Clone(d.Aliases)
	d.Switch = slices.Clone(d.Switch)
	return d
}

// Registry stores parameter definitions. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	defs    map[string]*Definition
	aliases map[string]string
	binds   map[string]string
	order   []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		defs:    make(map[string]*Definition),
		aliases: make(map[string]string),
		binds:   make(map[string]string),
	}
}

// Register validates and stores a definition.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("parameter name must not be empty")
	}
	def = def.clone()
	if def.Bind == "" {
		def.Bind = def.Name
	}
	if def.Type == cty.NilType {
		def.Type = cty.DynamicPseudoType
	}
	if def.Default != nil {
		v, err := convert.Convert(*def.Default, def.Type)
		if err != nil {
			return fmt.Errorf("parameter '%s': default value does not match type %s: %w", def.Name, def.Type.FriendlyName(), err)
		}
		def.Default = &v
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.taken(def.Name) {
		return fmt.Errorf("%w: '%s'", ErrDuplicateParameter, def.Name)
	}
	if owner, ok := r.binds[def.Bind]; ok {
		return fmt.Errorf("%w: '%s' is already bound by parameter '%s'", ErrDuplicateBind, def.Bind, owner)
	}
	for _, alias := range def.Aliases {
		if alias == def.Name || r.taken(alias) {
			return fmt.Errorf("%w: alias '%s' of parameter '%s'", ErrDuplicateParameter, alias, def.Name)
		}
	}

	// Switch groups are kept symmetric regardless of registration order.
	def.Switch = slices.DeleteFunc(def.Switch, func(s string) bool { return s == def.Name })
	for _, partner := range def.Switch {
		if other, ok := r.defs[partner]; ok && !slices.Contains(other.Switch, def.Name) {
			other.Switch = append(other.Switch, def.Name)
		}
	}
	for _, name := range r.order {
		if slices.Contains(r.defs[name].Switch, def.Name) && !slices.Contains(def.Switch, name) {
			def.Switch = append(def.Switch, name)
		}
	}

	r.defs[def.Name] = &def
	r.binds[def.Bind] = def.Name
	for _, alias := range def.Aliases {
		r.aliases[alias] = def.Name
	}
	r.order = append(r.order, def.Name)
	return nil
}

func (r *Registry) taken(name string) bool {
	if _, ok := r.defs[name]; ok {
		return true
	}
	_, ok := r.aliases[name]
	return ok
}

// Lookup finds a definition by name or alias.
func (r *Registry) Lookup(nameOrAlias string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def := r.lookup(nameOrAlias)
	if def == nil {
		return Definition{}, false
	}
	return def.clone(), true
}

func (r *Registry) lookup(nameOrAlias string) *Definition {
	if def, ok := r.defs[nameOrAlias]; ok {
		return def
	}
	if name, ok := r.aliases[nameOrAlias]; ok {
		return r.defs[name]
	}
	return nil
}

// Names returns all parameter names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Definitions returns copies of all definitions in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[name].clone())
	}
	return out
}

// Switches returns the switch group of the named parameter.
func (r *Registry) Switches(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if def := r.lookup(name); def != nil {
		return slices.Clone(def.Switch)
	}
	return nil
}

// Missing returns the names of required parameters that have no value in
// the given store, in registration order.
func (r *Registry) Missing(values interface{ Has(string) bool }) []string {
	var missing []string
	for _, def := range r.Definitions() {
		if def.Required && !values.Has(def.Name) {
			missing = append(missing, def.Name)
		}
	}
	return missing
}
