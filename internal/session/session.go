// Package session bundles everything a single run needs into one explicit
// object: the parameter registry and value store, the command registry, the
// cycle engine, the runner and the phase scheduler.
//
// Independent sessions share nothing, so several can live in one process
// (tests do this constantly).
package session

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vk/cmdgrid/internal/command"
	"github.com/vk/cmdgrid/internal/ctxlog"
	"github.com/vk/cmdgrid/internal/cycle"
	"github.com/vk/cmdgrid/internal/model"
	"github.com/vk/cmdgrid/internal/param"
	"github.com/vk/cmdgrid/internal/runner"
	"github.com/vk/cmdgrid/internal/scheduler"
	"github.com/zclconf/go-cty/cty"
)

// Options configures a Session.
type Options struct {
	// Phases is the phase order. Empty means a single default phase.
	Phases []string
	// DefaultPhase is assigned to commands that do not name a phase. When
	// empty, model.DefaultPhase is used if it is part of Phases, otherwise the
	// first phase.
	DefaultPhase string
	// MaxCycleDepth limits cycle nesting; zero selects cycle.DefaultMaxDepth.
	MaxCycleDepth int
	// RunID identifies the run in logs and status output. A random UUID is
	// generated when empty.
	RunID string
}

// Run states reported by Status.
const (
	StateIdle      = "idle"
	StateRunning   = "running"
	StateSucceeded = "succeeded"
	StateFailed    = "failed"
)

// Status is a snapshot of a session for diagnostics.
type Status struct {
	RunID           string     `json:"run_id"`
	State           string     `json:"state"`
	CurrentPhase    string     `json:"current_phase,omitempty"`
	CompletedPhases []string   `json:"completed_phases"`
	ActiveCycle     string     `json:"active_cycle,omitempty"`
	Error           string     `json:"error,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

// MissingParametersError lists globally required parameters without a value.
type MissingParametersError struct {
	Names []string
}

func (e *MissingParametersError) Error() string {
	return fmt.Sprintf("missing required parameters: %s", strings.Join(e.Names, ", "))
}

// Session is the explicit context object of one run.
type Session struct {
	id        string
	params    *param.Registry
	store     *param.Store
	commands  *command.Registry
	runner    *runner.Runner
	cycles    *cycle.Engine
	scheduler *scheduler.Scheduler

	mu       sync.RWMutex
	state    string
	lastErr  error
	started  time.Time
	finished time.Time
}

// New creates a Session.
func New(opts Options) (*Session, error) {
	id := opts.RunID
	if id == "" {
		id = uuid.NewString()
	}
	defaultPhase := opts.DefaultPhase
	if defaultPhase == "" {
		defaultPhase = model.DefaultPhase
		if len(opts.Phases) > 0 && !slices.Contains(opts.Phases, defaultPhase) {
			defaultPhase = opts.Phases[0]
		}
	}

	s := &Session{
		id:       id,
		params:   param.NewRegistry(),
		commands: command.NewRegistry(defaultPhase),
		state:    StateIdle,
	}
	s.store = param.NewStore(s.params)
	s.runner = runner.New(s.store)
	s.cycles = cycle.New(s.commands, s.runner, opts.MaxCycleDepth)

	sched, err := scheduler.New(s.commands, s.cycles, opts.Phases)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	s.scheduler = sched
	s.store.OnSet(s.scheduler.Trigger)
	return s, nil
}

// ID returns the run id.
func (s *Session) ID() string { return s.id }

// Params returns the parameter registry.
func (s *Session) Params() *param.Registry { return s.params }

// Store returns the value store.
func (s *Session) Store() *param.Store { return s.store }

// Commands returns the command registry.
func (s *Session) Commands() *command.Registry { return s.commands }

// Cycles returns the cycle engine.
func (s *Session) Cycles() *cycle.Engine { return s.cycles }

// Scheduler returns the phase scheduler.
func (s *Session) Scheduler() *scheduler.Scheduler { return s.scheduler }

// RegisterParameter adds a parameter definition.
func (s *Session) RegisterParameter(def param.Definition) error {
	return s.params.Register(def)
}

// RegisterCommand registers a command and attaches its cycle, if it has one.
// A definition that would break an existing cycle is rejected and leaves the
// session unchanged.
func (s *Session) RegisterCommand(def *model.Command) error {
	return s.cycles.RegisterCommand(def)
}

// Set assigns a parameter value. Commands triggered by the parameter are
// queued.
func (s *Session) Set(ctx context.Context, name string, value cty.Value) error {
	return s.store.Set(ctx, name, value)
}

// SetString parses and assigns a raw parameter value.
func (s *Session) SetString(ctx context.Context, name, raw string) error {
	return s.store.SetString(ctx, name, raw)
}

// Invoke queues commands requested by the user.
func (s *Session) Invoke(ctx context.Context, names ...string) error {
	for _, name := range names {
		if err := s.scheduler.Invoke(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// Plan returns the resolved schedule without running it.
func (s *Session) Plan() ([]scheduler.PhasePlan, error) {
	return s.scheduler.Plan()
}

// Run checks globally required parameters and executes every phase.
func (s *Session) Run(ctx context.Context) error {
	ctx = ctxlog.With(ctx, "run_id", s.id)
	logger := ctxlog.FromContext(ctx)

	s.mu.Lock()
	s.state = StateRunning
	s.started = time.Now()
	s.mu.Unlock()

	err := s.run(ctx)

	s.mu.Lock()
	s.finished = time.Now()
	s.lastErr = err
	if err != nil {
		s.state = StateFailed
	} else {
		s.state = StateSucceeded
	}
	s.mu.Unlock()

	if err == nil {
		logger.Debug("Run finished.", "duration", s.finished.Sub(s.started))
	}
	return err
}

func (s *Session) run(ctx context.Context) error {
	if missing := s.params.Missing(s.store); len(missing) > 0 {
		return &MissingParametersError{Names: missing}
	}
	return s.scheduler.Run(ctx)
}

// ActiveCycle returns the innermost cycle currently executing.
func (s *Session) ActiveCycle() string {
	return s.cycles.ActiveCycle()
}

// Status returns a diagnostic snapshot. It is safe to call from another
// goroutine while the session runs.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		RunID:           s.id,
		State:           s.state,
		CurrentPhase:    s.scheduler.Current(),
		CompletedPhases: s.scheduler.Completed(),
		ActiveCycle:     s.cycles.ActiveCycle(),
	}
	if st.CompletedPhases == nil {
		st.CompletedPhases = []string{}
	}
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
	}
	if !s.started.IsZero() {
		started := s.started
		st.StartedAt = &started
	}
	if !s.finished.IsZero() {
		finished := s.finished
		st.FinishedAt = &finished
	}
	return st
}
