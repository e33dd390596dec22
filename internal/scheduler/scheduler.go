package scheduler

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/vk/cmdgrid/internal/command"
	"github.com/vk/cmdgrid/internal/ctxlog"
	"github.com/vk/cmdgrid/internal/model"
)

// Dispatcher executes a single command, including any cycle attached to it.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd *model.Command) error
}

// PhasePlan is the resolved order of one phase.
type PhasePlan struct {
	Phase     string   `yaml:"phase" json:"phase"`
	Commands  []string `yaml:"commands" json:"commands"`
	Completed bool     `yaml:"completed,omitempty" json:"completed,omitempty"`
}

type phaseState struct {
	pending   []string
	ran       map[string]bool
	executed  []string
	completed bool
}

// Scheduler holds the per-phase queues of a run.
type Scheduler struct {
	commands *command.Registry
	dispatch Dispatcher

	mu      sync.Mutex
	order   []string
	phases  map[string]*phaseState
	current string
}

// New creates a Scheduler for the given phase order. An empty order selects
// the registry's default phase as the only phase. The default phase must be
// part of the order.
func New(commands *command.Registry, dispatch Dispatcher, order []string) (*Scheduler, error) {
	if len(order) == 0 {
		order = []string{commands.DefaultPhase()}
	}
	s := &Scheduler{
		commands: commands,
		dispatch: dispatch,
		phases:   make(map[string]*phaseState, len(order)),
	}
	for _, phase := range order {
		if phase == "" {
			return nil, fmt.Errorf("phase name must not be empty")
		}
		if _, dup := s.phases[phase]; dup {
			return nil, fmt.Errorf("phase '%s' is listed more than once", phase)
		}
		s.phases[phase] = &phaseState{ran: make(map[string]bool)}
		s.order = append(s.order, phase)
	}
	if _, ok := s.phases[commands.DefaultPhase()]; !ok {
		return nil, fmt.Errorf("%w: default phase '%s' is not part of the phase order", ErrUnknownPhase, commands.DefaultPhase())
	}
	return s, nil
}

// Phases returns the configured phase order.
func (s *Scheduler) Phases() []string {
	return slices.Clone(s.order)
}

// Enqueue queues the named command and, transitively, every command it
// requires before itself or names as next. Queueing a command that is
// already pending or already ran in a phase that has not completed yet is a
// no-op.
func (s *Scheduler) Enqueue(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enqueue(ctx, name, make(map[string]bool))
}

func (s *Scheduler) enqueue(ctx context.Context, name string, visiting map[string]bool) error {
	if visiting[name] {
		return nil
	}
	visiting[name] = true

	cmd, err := s.commands.Get(name)
	if err != nil {
		return err
	}
	st, ok := s.phases[cmd.Phase]
	if !ok {
		return fmt.Errorf("%w: phase '%s' of command '%s'", ErrUnknownPhase, cmd.Phase, name)
	}
	if st.completed {
		return fmt.Errorf("%w: command '%s' targets phase '%s'", ErrPhaseCompleted, name, cmd.Phase)
	}
	if !st.ran[name] && !slices.Contains(st.pending, name) {
		st.pending = append(st.pending, name)
		ctxlog.FromContext(ctx).Debug("Command queued.", "command", name, "phase", cmd.Phase)
	}
	for _, dep := range cmd.Binding() {
		if err := s.enqueue(ctx, dep, visiting); err != nil {
			return fmt.Errorf("queueing '%s' for '%s': %w", dep, name, err)
		}
	}
	return nil
}

// Invoke is the entry point for commands requested by the user. It rejects
// commands that may only run inside a cycle.
func (s *Scheduler) Invoke(ctx context.Context, name string) error {
	if _, err := s.commands.Get(name); err != nil {
		return err
	}
	if !s.commands.Invocable(name) {
		return fmt.Errorf("%w: '%s' only runs as part of a cycle", ErrNotInvocable, name)
	}
	return s.Enqueue(ctx, name)
}

// Trigger queues every command whose trigger is the given parameter.
func (s *Scheduler) Trigger(ctx context.Context, param string) error {
	for _, name := range s.commands.Triggered(param) {
		ctxlog.FromContext(ctx).Debug("Parameter triggered command.", "parameter", param, "command", name)
		if err := s.Enqueue(ctx, name); err != nil {
			return fmt.Errorf("trigger '%s': %w", param, err)
		}
	}
	return nil
}

// Run executes every phase in order.
func (s *Scheduler) Run(ctx context.Context) error {
	for _, phase := range s.order {
		if err := s.runPhase(ctx, phase); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.current = ""
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) runPhase(ctx context.Context, phase string) error {
	logger := ctxlog.FromContext(ctx).With("phase", phase)
	ctx = ctxlog.WithLogger(ctx, logger)

	s.mu.Lock()
	st := s.phases[phase]
	if st.completed {
		s.mu.Unlock()
		return nil
	}
	s.current = phase
	s.mu.Unlock()

	logger.Debug("Starting phase.")
	for {
		s.mu.Lock()
		batch := st.pending
		st.pending = nil
		s.mu.Unlock()
		if len(batch) == 0 {
			break
		}

		resolved, err := s.commands.Resolve(batch)
		if err != nil {
			return fmt.Errorf("phase '%s': %w", phase, err)
		}
		logger.Debug("Resolved phase queue.", "order", resolved)

		for _, name := range resolved {
			cmd, err := s.commands.Get(name)
			if err != nil {
				return err
			}
			s.mu.Lock()
			st.ran[name] = true
			st.executed = append(st.executed, name)
			s.mu.Unlock()

			if err := s.dispatch.Dispatch(ctx, cmd); err != nil {
				return err
			}
		}
	}

	s.mu.Lock()
	st.completed = true
	s.mu.Unlock()
	logger.Info("🏁 Phase complete")
	return nil
}

// Plan resolves the pending queues without running anything. Completed
// phases report the commands they executed.
func (s *Scheduler) Plan() ([]PhasePlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plans := make([]PhasePlan, 0, len(s.order))
	for _, phase := range s.order {
		st := s.phases[phase]
		if st.completed {
			plans = append(plans, PhasePlan{Phase: phase, Commands: slices.Clone(st.executed), Completed: true})
			continue
		}
		resolved, err := s.commands.Resolve(st.pending)
		if err != nil {
			return nil, fmt.Errorf("phase '%s': %w", phase, err)
		}
		plans = append(plans, PhasePlan{Phase: phase, Commands: resolved})
	}
	return plans, nil
}

// Current returns the phase being executed, or an empty string.
func (s *Scheduler) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Completed returns the phases that have finished, in order.
func (s *Scheduler) Completed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, phase := range s.order {
		if s.phases[phase].completed {
			out = append(out, phase)
		}
	}
	return out
}

// IsCompleted reports whether the named phase has finished.
func (s *Scheduler) IsCompleted(phase string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.phases[phase]
	return ok && st.completed
}

// Pending returns the commands queued in a phase, in queue order.
func (s *Scheduler) Pending(phase string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.phases[phase]; ok {
		return slices.Clone(st.pending)
	}
	return nil
}
