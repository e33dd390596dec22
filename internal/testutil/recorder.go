package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/cmdgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Recorder is a test module whose handlers record their own names in call
// order. It also registers "OnRunIncrement", which adds one to the number
// parameter named by Counter.
type Recorder struct {
	Handlers []string
	Counter  string
	// Fail maps handler names to the error they return.
	Fail map[string]error

	mu    sync.Mutex
	calls []string
}

// NewRecorder creates a Recorder for the given handler names.
func NewRecorder(handlers ...string) *Recorder {
	return &Recorder{Handlers: handlers, Counter: "count"}
}

// Register implements the registry.Module interface.
func (r *Recorder) Register(reg *registry.Registry) {
	for _, name := range r.Handlers {
		name := name
		reg.RegisterHandler(name, &registry.RegisteredHandler{
			Fn: func(context.Context, *registry.Runtime) error {
				r.record(name)
				return r.Fail[name]
			},
		})
	}
	reg.RegisterHandler("OnRunIncrement", &registry.RegisteredHandler{
		Fn:     r.increment,
		Params: map[string]cty.Type{r.Counter: cty.Number},
	})
}

func (r *Recorder) increment(ctx context.Context, rt *registry.Runtime) error {
	r.record("OnRunIncrement")
	var n int64
	if v, ok := rt.Values.Get(r.Counter); ok {
		if err := gocty.FromCtyValue(v, &n); err != nil {
			return fmt.Errorf("counter '%s': %w", r.Counter, err)
		}
	}
	return rt.Values.Set(ctx, r.Counter, cty.NumberIntVal(n+1))
}

func (r *Recorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

// Calls returns the handler names in call order.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}
