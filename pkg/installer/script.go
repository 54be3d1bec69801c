package installer

import (
	"context"
	"os"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/executor"
	"github.com/arthur-debert/devplug/pkg/types"
)

func init() {
	Register("script", newScriptInstaller)
	Register("shell", newShellInstaller)
}

// commandInstaller runs a plugin script or a shell command line. It has no
// notion of presence of its own, so it relies on the manifest probe.
type commandInstaller struct {
	step types.InstallStep
	deps Deps
	// script is checked for existence before running.
	script string
	cmd    executor.Command
}

// newScriptInstaller runs a plugin-relative script. Params: path, args,
// interpreter (default bash).
func newScriptInstaller(step types.InstallStep, deps Deps) (Installer, error) {
	p := params{step}
	if _, err := p.required("path"); err != nil {
		return nil, err
	}
	if err := requireProbe(step); err != nil {
		return nil, err
	}
	script := p.path("path")
	interpreter := p.str("interpreter")
	if interpreter == "" {
		interpreter = "bash"
	}
	return &commandInstaller{
		step:   step,
		deps:   deps,
		script: script,
		cmd: executor.Command{
			Name: interpreter,
			Args: append([]string{script}, p.strs("args")...),
			Dir:  step.PluginRoot,
			Env:  stepEnv(step),
		},
	}, nil
}

// newShellInstaller runs a command line with bash -c. Params: command.
func newShellInstaller(step types.InstallStep, deps Deps) (Installer, error) {
	p := params{step}
	command, err := p.required("command")
	if err != nil {
		return nil, err
	}
	if err := requireProbe(step); err != nil {
		return nil, err
	}
	return &commandInstaller{
		step: step,
		deps: deps,
		cmd: executor.Command{
			Name: "bash",
			Args: []string{"-c", command},
			Dir:  step.PluginRoot,
			Env:  stepEnv(step),
		},
	}, nil
}

func requireProbe(step types.InstallStep) error {
	if step.Probe.IsZero() {
		return errors.Newf(errors.ErrConfigValid, "step %s: kind %s needs a probe", step.ID(), step.Kind).
			WithDetail("step", step.ID())
	}
	return nil
}

func (c *commandInstaller) Name() string { return c.step.ID() }

func (c *commandInstaller) Probe(ctx context.Context) (bool, error) {
	return runProbe(ctx, c.deps.Runner, c.step)
}

func (c *commandInstaller) Install(ctx context.Context) error {
	if c.script != "" {
		if _, err := os.Stat(c.script); err != nil {
			return errors.Wrapf(err, errors.ErrMissingPrerequisite, "script %s not found", c.script).
				WithDetail("step", c.step.ID())
		}
	}
	if _, err := c.deps.Runner.LookPath(c.cmd.Name); err != nil {
		return err
	}

	cmd := c.cmd
	cmd.Stdout = c.deps.Output
	cmd.Stderr = c.deps.Output
	if _, err := c.deps.Runner.Run(ctx, cmd); err != nil {
		return errors.Wrapf(err, errors.ErrInstall, "%s failed", c.step.ID()).
			WithDetail("step", c.step.ID())
	}
	return nil
}
