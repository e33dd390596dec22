package app

import (
	"context"
	"fmt"
	"io"

	"github.com/vk/cmdgrid/internal/ctxlog"
	"github.com/vk/cmdgrid/internal/scheduler"
	"gopkg.in/yaml.v3"
)

// planDocument is the YAML shape written by Plan.
type planDocument struct {
	RunID  string                `yaml:"run_id"`
	Phases []scheduler.PhasePlan `yaml:"phases"`
}

// Plan applies the configured values, queues the requested commands and
// writes the resolved schedule as YAML without running anything.
func (a *App) Plan(ctx context.Context, w io.Writer) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	if err := a.prepare(ctx); err != nil {
		return err
	}
	phases, err := a.session.Plan()
	if err != nil {
		return fmt.Errorf("failed to resolve plan: %w", err)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(planDocument{RunID: a.session.ID(), Phases: phases}); err != nil {
		return fmt.Errorf("failed to render plan: %w", err)
	}
	return enc.Close()
}
