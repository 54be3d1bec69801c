package core

import (
	"context"
	"strings"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/installer"
	"github.com/arthur-debert/devplug/pkg/logging"
	"github.com/arthur-debert/devplug/pkg/summary"
	"github.com/arthur-debert/devplug/pkg/types"
)

// Steps returns the install steps of every enabled plugin in registry
// order.
func (a *App) Steps() ([]types.InstallStep, error) {
	plugins, err := a.EnabledPlugins()
	if err != nil {
		return nil, err
	}
	return collectSteps(plugins), nil
}

func collectSteps(plugins []Plugin) []types.InstallStep {
	var steps []types.InstallStep
	for _, p := range plugins {
		steps = append(steps, p.Manifest.InstallSteps()...)
	}
	return steps
}

// Provision ensures the install steps of every enabled plugin. When only
// is non-empty, just those steps and their transitive dependencies run.
// Names may be bare step names or plugin/step IDs. The error is non-nil
// for configuration problems found before anything was installed; step
// failures are reported through the summary.
func (a *App) Provision(ctx context.Context, only ...string) (*summary.RunSummary, error) {
	steps, err := a.Steps()
	if err != nil {
		return nil, err
	}
	if len(only) > 0 {
		if steps, err = selectSteps(steps, only); err != nil {
			return nil, err
		}
	}

	s := a.newSummary("install")
	if err := a.provision(ctx, s, steps); err != nil {
		return nil, err
	}
	return a.finish(s), nil
}

func (a *App) provision(ctx context.Context, s *summary.RunSummary, steps []types.InstallStep) error {
	a.logger.Info().Int("steps", len(steps)).Bool("dry_run", a.dryRun()).Msg("Provisioning")
	defer logging.LogOperationStart(a.logger, "provision")()

	results, err := installer.NewRunner(a.Runner, installer.Options{
		FailFast: a.failFast(),
		DryRun:   a.dryRun(),
		Output:   a.Stderr,
	}).Run(ctx, steps)
	if err != nil {
		return err
	}
	s.Add(results...)
	return nil
}

// selectSteps keeps the named steps and everything they depend on, in
// their original order.
func selectSteps(steps []types.InstallStep, names []string) ([]types.InstallStep, error) {
	byID := make(map[string]types.InstallStep, len(steps))
	for _, s := range steps {
		byID[s.ID()] = s
	}

	keep := map[string]bool{}
	var visit func(id string)
	visit = func(id string) {
		if keep[id] {
			return
		}
		keep[id] = true
		step, ok := byID[id]
		if !ok {
			return
		}
		for _, dep := range step.DependsOn {
			visit(installer.DependencyID(step, dep))
		}
	}

	for _, name := range names {
		ids := matchStep(steps, name)
		switch len(ids) {
		case 0:
			return nil, errors.Newf(errors.ErrInvalidInput, "no enabled plugin declares a step named %q", name)
		case 1:
			visit(ids[0])
		default:
			return nil, errors.Newf(errors.ErrInvalidInput,
				"step name %q is ambiguous (%s); use plugin/step", name, strings.Join(ids, ", "))
		}
	}

	var out []types.InstallStep
	for _, s := range steps {
		if keep[s.ID()] {
			out = append(out, s)
		}
	}
	return out, nil
}

func matchStep(steps []types.InstallStep, name string) []string {
	var ids []string
	for _, s := range steps {
		if s.ID() == name || (!strings.Contains(name, "/") && s.Name == name) {
			ids = append(ids, s.ID())
		}
	}
	return ids
}
