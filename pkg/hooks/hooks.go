// Package hooks runs plugin lifecycle scripts. For a phase, each enabled
// plugin's hooks/<phase>.sh is run with bash, one after the other, in
// registry order.
package hooks

import (
	"context"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/executor"
	"github.com/arthur-debert/devplug/pkg/logging"
	"github.com/arthur-debert/devplug/pkg/paths"
	"github.com/arthur-debert/devplug/pkg/types"
)

// Category groups hook results in run summaries.
const Category = "hooks"

// EnvVerbose tells hook scripts how chatty to be.
const EnvVerbose = "DEVPLUG_VERBOSE"

// Plugin is a plugin whose hooks may run.
type Plugin struct {
	Name string
	Root string
}

// Env is the environment contract passed to every hook.
type Env struct {
	RepoRoot string
	HostUID  int
	// ShiftedGID is omitted when negative.
	ShiftedGID int
	Verbosity  int
	// Extra holds additional KEY=value pairs, such as credential exports.
	Extra []string
}

// Environ renders the contract for one plugin and phase.
func (e Env) Environ(p Plugin, phase types.Phase) []string {
	env := []string{
		executor.EnvPair(paths.EnvPluginRoot, p.Root),
		executor.EnvPair(paths.EnvRepoRoot, e.RepoRoot),
		executor.EnvPair(paths.EnvHostUID, e.HostUID),
		executor.EnvPair(EnvVerbose, e.Verbosity),
		executor.EnvPair(paths.EnvPhase, phase),
	}
	if e.ShiftedGID >= 0 {
		env = append(env, executor.EnvPair(paths.EnvShiftedGID, e.ShiftedGID))
	}
	return append(env, e.Extra...)
}

// Options controls a hook run.
type Options struct {
	FailFast bool
	DryRun   bool
	// Stdout and Stderr receive hook output. May be nil.
	Stdout io.Writer
	Stderr io.Writer
}

// Runner runs the hooks of one phase.
type Runner struct {
	exec   executor.Runner
	opts   Options
	logger zerolog.Logger
}

// NewRunner creates a hook Runner.
func NewRunner(exec executor.Runner, opts Options) *Runner {
	return &Runner{
		exec:   exec,
		opts:   opts,
		logger: logging.GetLogger("hooks"),
	}
}

// Run runs phase for every plugin that has the hook and returns one
// result per hook found. A failing hook is recorded and the next one runs
// unless FailFast is set, in which case the remaining hooks are skipped.
func (r *Runner) Run(ctx context.Context, phase types.Phase, plugins []Plugin, env Env) []types.StepResult {
	var results []types.StepResult
	aborted := false

	for _, p := range plugins {
		script := paths.HookPath(p.Root, phase.ScriptName())
		if info, err := os.Stat(script); err != nil || !info.Mode().IsRegular() {
			continue
		}

		res := types.StepResult{
			Name:     string(phase),
			Plugin:   p.Name,
			Category: Category,
		}
		switch {
		case aborted:
			res.Status = types.StatusSkipped
			res.Message = "not run: an earlier hook failed and fail-fast is set"
		case ctx.Err() != nil:
			res.Status = types.StatusSkipped
			res.Message = "cancelled"
		case r.opts.DryRun:
			res.Status = types.StatusWouldInstall
			res.Message = "would run " + script
		default:
			r.run(ctx, script, p, phase, env, &res)
		}

		r.log(p, phase, res)
		results = append(results, res)
		if res.Status == types.StatusFailed && r.opts.FailFast {
			aborted = true
		}
	}
	return results
}

func (r *Runner) run(ctx context.Context, script string, p Plugin, phase types.Phase, env Env, res *types.StepResult) {
	start := time.Now()
	_, err := r.exec.Run(ctx, executor.Command{
		Name:   "bash",
		Args:   []string{script},
		Dir:    p.Root,
		Env:    env.Environ(p, phase),
		Stdout: r.opts.Stdout,
		Stderr: r.opts.Stderr,
	})
	res.Duration = time.Since(start)

	if err != nil {
		hookErr := errors.Wrapf(err, errors.ErrHook, "%s hook of %s failed", phase, p.Name).
			WithDetail("exit_code", executor.ExitCode(err))
		res.Status = types.StatusFailed
		res.Message = "exit status " + strconv.Itoa(executor.ExitCode(err))
		res.Error = hookErr.Error()
		return
	}
	res.Status = types.StatusSucceeded
}

func (r *Runner) log(p Plugin, phase types.Phase, res types.StepResult) {
	var ev *zerolog.Event
	switch res.Status {
	case types.StatusFailed:
		ev = r.logger.Error()
	case types.StatusSkipped:
		ev = r.logger.Warn()
	default:
		ev = r.logger.Info()
	}
	ev.Str("plugin", p.Name).
		Str("phase", string(phase)).
		Str("status", string(res.Status)).
		Str("error", res.Error).
		Dur("duration", res.Duration).
		Msg("Hook finished")
}
