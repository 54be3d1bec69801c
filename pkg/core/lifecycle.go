package core

import (
	"context"
	"os"
	"time"

	"github.com/arthur-debert/devplug/pkg/credentials"
	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/executor"
	"github.com/arthur-debert/devplug/pkg/homelinks"
	"github.com/arthur-debert/devplug/pkg/hooks"
	"github.com/arthur-debert/devplug/pkg/idmap"
	"github.com/arthur-debert/devplug/pkg/logging"
	"github.com/arthur-debert/devplug/pkg/summary"
	"github.com/arthur-debert/devplug/pkg/types"
)

// ContainerCategory groups container engine results in run summaries.
const ContainerCategory = "container"

// ShiftedGID computes the namespace-shifted GID hooks receive. It returns
// -1 with the reason when it cannot be computed.
func (a *App) ShiftedGID() (int, error) {
	m, err := idmap.NewMapper(a.Config.IDMap.SubGIDFile, a.Config.IDMap.Offset)
	if err != nil {
		return -1, err
	}
	gid, err := m.ShiftedGID(a.Config.Runtime.HostUID, a.Config.ShiftGID())
	if err != nil {
		return -1, err
	}
	return gid, nil
}

// Credentials resolves the credential bindings of every enabled plugin in
// registry order. Later bindings override earlier ones for the same key.
func (a *App) Credentials(ctx context.Context) (credentials.Result, error) {
	plugins, err := a.EnabledPlugins()
	if err != nil {
		return credentials.Result{}, err
	}
	return a.credentials(ctx, plugins)
}

func (a *App) credentials(ctx context.Context, plugins []Plugin) (credentials.Result, error) {
	var bindings []types.CredentialBinding
	for _, p := range plugins {
		bindings = append(bindings, p.Manifest.Credentials...)
	}
	loader := credentials.NewLoader(a.Config.Credentials.Dir, a.Config.Credentials.CertEnv, a.Runner)
	return loader.Load(ctx, bindings)
}

// Env renders the credential exports as shell code for eval.
func (a *App) Env(ctx context.Context) (string, []string, error) {
	res, err := a.Credentials(ctx)
	if err != nil {
		return "", nil, err
	}
	return credentials.FormatExports(res.Exports), res.Warnings, nil
}

// RunHooks runs one phase for every enabled plugin.
func (a *App) RunHooks(ctx context.Context, phase types.Phase) (*summary.RunSummary, error) {
	plugins, err := a.EnabledPlugins()
	if err != nil {
		return nil, err
	}
	s := a.newSummary("hooks " + string(phase))
	if err := a.runHooks(ctx, s, phase, plugins); err != nil {
		return nil, err
	}
	return a.finish(s), nil
}

func (a *App) runHooks(ctx context.Context, s *summary.RunSummary, phase types.Phase, plugins []Plugin) error {
	defer logging.LogOperationStart(a.logger, "hooks "+string(phase))()

	env := hooks.Env{
		RepoRoot:  a.RepoRoot(),
		HostUID:   a.Config.Runtime.HostUID,
		Verbosity: a.Config.Runtime.Verbosity,
	}

	gid, err := a.ShiftedGID()
	if err != nil {
		s.Warn("cannot compute shifted gid: " + errors.Message(err))
	}
	env.ShiftedGID = gid

	if phase == types.PhaseEnvSetup {
		creds, err := a.credentials(ctx, plugins)
		if err != nil {
			return err
		}
		s.Warn(creds.Warnings...)
		env.Extra = creds.Environ()
	}

	targets := make([]hooks.Plugin, 0, len(plugins))
	for _, p := range plugins {
		targets = append(targets, hooks.Plugin{Name: p.Name(), Root: p.Root()})
	}

	runner := hooks.NewRunner(a.Runner, hooks.Options{
		FailFast: a.failFast(),
		DryRun:   a.dryRun(),
		Stdout:   a.Stdout,
		Stderr:   a.Stderr,
	})
	s.Add(runner.Run(ctx, phase, targets, env)...)
	return nil
}

// ContainerStartup runs inside the container when it starts: home links
// for the secondary user, then the symlink script, then the
// container-startup hooks.
func (a *App) ContainerStartup(ctx context.Context) (*summary.RunSummary, error) {
	plugins, err := a.EnabledPlugins()
	if err != nil {
		return nil, err
	}
	s := a.newSummary("container-startup")

	opts := homelinks.OptionsFromConfig(a.Config.Home, a.dryRun())
	opts.Dotfiles = append([]string(nil), opts.Dotfiles...)
	for _, p := range plugins {
		opts.Dotfiles = appendMissing(opts.Dotfiles, p.Manifest.Home.Dotfiles...)
	}
	links, err := homelinks.Ensure(opts)
	if err != nil {
		return nil, err
	}
	s.Add(links...)

	if res, ok := a.runSymlinkScript(ctx); ok {
		s.Add(res)
	}

	if err := a.runHooks(ctx, s, types.PhaseContainerStartup, plugins); err != nil {
		return nil, err
	}
	return a.finish(s), nil
}

// runSymlinkScript recreates the plugin symlinks inside the container. It
// reports false when there is no script to run.
func (a *App) runSymlinkScript(ctx context.Context) (types.StepResult, bool) {
	script := a.Config.Mounts.SymlinkScriptContainerPath
	if script == "" {
		return types.StepResult{}, false
	}
	if _, err := os.Stat(script); err != nil {
		return types.StepResult{}, false
	}

	res := types.StepResult{Name: "symlinks", Category: MountsCategory}
	if a.dryRun() {
		res.Status = types.StatusWouldInstall
		res.Message = "would run " + script
		return res, true
	}

	start := time.Now()
	_, err := a.Runner.Run(ctx, executor.Command{
		Name:   "bash",
		Args:   []string{script},
		Stdout: a.Stdout,
		Stderr: a.Stderr,
	})
	res.Duration = time.Since(start)
	if err != nil {
		res.Status = types.StatusFailed
		res.Error = errors.Wrapf(err, errors.ErrCommand, "symlink script %s failed", script).Error()
		return res, true
	}
	res.Status = types.StatusSucceeded
	return res, true
}

// Build regenerates the mounts and builds the container images. The
// user-setup hooks are not run here: they belong inside the image build,
// where the Dockerfile calls `devplug hooks user-setup`.
func (a *App) Build(ctx context.Context, noCache bool) (*summary.RunSummary, error) {
	plugins, err := a.EnabledPlugins()
	if err != nil {
		return nil, err
	}
	s := a.newSummary("build")
	if a.mountsStep(ctx, s, plugins) || !a.failFast() {
		a.engineStep(ctx, s, "build", func(ctx context.Context) error {
			return a.Engine().Build(ctx, noCache)
		})
	}
	return a.finish(s), nil
}

// Up runs the pre-up hooks, regenerates the mounts, starts the container
// in the background and runs the post-up hooks. The post-up hooks only run
// once the engine started successfully. Unless detach is set, a shell is
// then attached; the container keeps running after the shell exits.
func (a *App) Up(ctx context.Context, detach bool) (*summary.RunSummary, error) {
	plugins, err := a.EnabledPlugins()
	if err != nil {
		return nil, err
	}
	s := a.newSummary("up")

	if err := a.runHooks(ctx, s, types.PhasePreUp, plugins); err != nil {
		return nil, err
	}
	if s.HasFailures() && a.failFast() {
		return a.finish(s), nil
	}

	if !a.mountsStep(ctx, s, plugins) && a.failFast() {
		return a.finish(s), nil
	}

	// always detached, so post-up does not wait on the foreground session
	ok := a.engineStep(ctx, s, "up", func(ctx context.Context) error {
		return a.Engine().Up(ctx, true)
	})
	if !ok {
		return a.finish(s), nil
	}

	if err := a.runHooks(ctx, s, types.PhasePostUp, plugins); err != nil {
		return nil, err
	}
	if detach || (s.HasFailures() && a.failFast()) {
		return a.finish(s), nil
	}

	a.engineStep(ctx, s, "attach", func(ctx context.Context) error {
		return a.Engine().Attach(ctx)
	})
	return a.finish(s), nil
}

// Down stops the container.
func (a *App) Down(ctx context.Context) error {
	return a.Engine().Down(ctx)
}

// Attach opens a shell in the running container.
func (a *App) Attach(ctx context.Context) error {
	return a.Engine().Attach(ctx)
}

// engineStep runs one engine verb as a summarized step and reports
// whether it succeeded.
func (a *App) engineStep(ctx context.Context, s *summary.RunSummary, verb string, fn func(context.Context) error) bool {
	res := types.StepResult{Name: verb, Category: ContainerCategory}
	start := time.Now()
	err := fn(ctx)
	res.Duration = time.Since(start)

	switch {
	case err != nil:
		res.Status = types.StatusFailed
		res.Error = err.Error()
	case a.dryRun():
		res.Status = types.StatusWouldInstall
	default:
		res.Status = types.StatusSucceeded
	}
	s.Add(res)
	return err == nil
}

func appendMissing(list []string, items ...string) []string {
	for _, item := range items {
		found := false
		for _, existing := range list {
			if existing == item {
				found = true
				break
			}
		}
		if !found {
			list = append(list, item)
		}
	}
	return list
}
