package core

import (
	"context"

	"github.com/arthur-debert/devplug/pkg/logging"
	"github.com/arthur-debert/devplug/pkg/mounts"
	"github.com/arthur-debert/devplug/pkg/paths"
	"github.com/arthur-debert/devplug/pkg/summary"
	"github.com/arthur-debert/devplug/pkg/types"
)

// MountsCategory groups mount generation results in run summaries.
const MountsCategory = "mounts"

// MountsResult is the outcome of a mount generation.
type MountsResult struct {
	mounts.Result
	// OverridePath is the compose override file that was (or, in a dry
	// run, would be) written.
	OverridePath string
	// Template is the override template used, empty for the built-in one.
	Template string
}

// GenerateMounts scans every enabled plugin's mounted files and writes the
// compose override file and, when symlinks were found, the symlink script.
// A dry run computes everything and writes nothing.
func (a *App) GenerateMounts(ctx context.Context) (*MountsResult, error) {
	plugins, err := a.EnabledPlugins()
	if err != nil {
		return nil, err
	}
	return a.generateMounts(ctx, plugins)
}

func (a *App) generateMounts(ctx context.Context, plugins []Plugin) (*MountsResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	defer logging.LogOperationStart(a.logger, "generate-mounts")()

	sources := make([]mounts.Source, 0, len(plugins))
	var templates []string
	for _, p := range plugins {
		sources = append(sources, mounts.Source{
			Name:  p.Name(),
			Root:  p.Root(),
			Extra: p.Manifest.Mounts.Extra,
			Skip:  p.Manifest.Mounts.Skip,
		})
		templates = append(templates, paths.OverrideTemplatePath(p.Root()))
	}

	opts := mounts.OptionsFromConfig(a.Config.Mounts, a.RepoRoot())
	res, err := mounts.Generate(sources, opts)
	if err != nil {
		return nil, err
	}

	service := a.Config.Container.Service
	tmpl, used, err := mounts.LoadTemplate(templates, service)
	if err != nil {
		return nil, err
	}

	out := &MountsResult{
		Result:       res,
		OverridePath: a.Engine().OverridePath(),
		Template:     used,
	}

	a.logger.Info().
		Int("mounts", len(res.Mounts)).
		Int("symlinks", len(res.Symlinks)).
		Int("warnings", len(res.Warnings)).
		Str("override", out.OverridePath).
		Bool("dry_run", a.dryRun()).
		Msg("Generated mounts")

	if a.dryRun() {
		return out, nil
	}

	if len(res.Symlinks) > 0 && opts.SymlinkScript != "" {
		if err := mounts.WriteSymlinkScript(opts.SymlinkScript, res.Symlinks); err != nil {
			return nil, err
		}
	}
	if err := mounts.WriteOverride(out.OverridePath, tmpl, service, res.Mounts); err != nil {
		return nil, err
	}
	return out, nil
}

// mountsStep runs mount generation as one summarized step.
func (a *App) mountsStep(ctx context.Context, s *summary.RunSummary, plugins []Plugin) bool {
	res := types.StepResult{Name: "override", Category: MountsCategory}
	out, err := a.generateMounts(ctx, plugins)
	switch {
	case err != nil:
		res.Status = types.StatusFailed
		res.Message = "cannot generate mounts"
		res.Error = err.Error()
	case a.dryRun():
		res.Status = types.StatusWouldInstall
		res.Message = "would write " + out.OverridePath
	default:
		res.Status = types.StatusInstalled
		res.Message = "wrote " + out.OverridePath
	}
	if out != nil {
		s.Warn(out.Warnings...)
	}
	s.Add(res)
	return err == nil
}

// WatchMounts regenerates the override file whenever a mounted-files tree
// of an enabled plugin changes, until ctx is cancelled. onChange, when not
// nil, receives every regeneration outcome.
func (a *App) WatchMounts(ctx context.Context, onChange func(*MountsResult, error)) error {
	plugins, err := a.EnabledPlugins()
	if err != nil {
		return err
	}

	roots := make([]string, 0, len(plugins))
	for _, p := range plugins {
		roots = append(roots, paths.MountRoot(p.Root()))
	}

	w, err := mounts.NewWatcher(roots, a.Config.Mounts.WatchDebounce, func(ctx context.Context) error {
		res, err := a.generateMounts(ctx, plugins)
		if onChange != nil {
			onChange(res, err)
		}
		return err
	})
	if err != nil {
		return err
	}
	return w.Watch(ctx)
}
