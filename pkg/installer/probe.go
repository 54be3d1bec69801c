package installer

import (
	"context"
	"os"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/executor"
	"github.com/arthur-debert/devplug/pkg/types"
)

// runProbe evaluates a manifest probe. The first non-empty field wins.
func runProbe(ctx context.Context, runner executor.Runner, step types.InstallStep) (bool, error) {
	spec := step.Probe
	switch {
	case spec.Command != "":
		_, err := runner.LookPath(spec.Command)
		return err == nil, nil

	case spec.Path != "":
		_, err := os.Lstat(resolvePath(step.PluginRoot, spec.Path))
		if err == nil {
			return true, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, errors.ErrProbe, "cannot stat %s", spec.Path)

	case spec.Check != "":
		if _, err := runner.LookPath("bash"); err != nil {
			return false, err
		}
		_, err := runner.Run(ctx, executor.Command{
			Name: "bash",
			Args: []string{"-c", spec.Check},
			Dir:  step.PluginRoot,
			Env:  stepEnv(step),
		})
		if err == nil {
			return true, nil
		}
		if executor.IsNonZeroExit(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, errors.ErrProbe, "probe check failed to run for %s", step.ID())
	}
	return false, nil
}

// probeOverride replaces the kind's built-in probe with the manifest's.
type probeOverride struct {
	Installer
	step   types.InstallStep
	runner executor.Runner
}

func (p *probeOverride) Probe(ctx context.Context) (bool, error) {
	return runProbe(ctx, p.runner, p.step)
}

func stepEnv(step types.InstallStep) []string {
	if step.PluginRoot == "" {
		return nil
	}
	return []string{executor.EnvPair("DEVPLUG_PLUGIN_ROOT", step.PluginRoot)}
}
