package installer

import (
	"context"
	"fmt"
	"io"

	"github.com/arthur-debert/devplug/pkg/executor"
	"github.com/arthur-debert/devplug/pkg/logging"
	"github.com/arthur-debert/devplug/pkg/types"
	"github.com/rs/zerolog"
)

// Options controls a provisioning run.
type Options struct {
	FailFast bool
	DryRun   bool
	// Output receives install command output. May be nil.
	Output io.Writer
}

// Runner ensures a set of steps in dependency order.
type Runner struct {
	exec   executor.Runner
	opts   Options
	logger zerolog.Logger
}

// NewRunner creates a Runner that shells out through exec.
func NewRunner(exec executor.Runner, opts Options) *Runner {
	return &Runner{
		exec:   exec,
		opts:   opts,
		logger: logging.GetLogger("installer"),
	}
}

// Run ensures every step and returns one result per step in execution
// order. Disabled steps are never probed or installed. A step whose
// dependency did not end up satisfied is skipped. Failures are collected;
// with FailFast the remaining steps are skipped after the first one. The
// error is non-nil only for malformed step graphs, before anything runs.
func (r *Runner) Run(ctx context.Context, steps []types.InstallStep) ([]types.StepResult, error) {
	ordered, err := Order(steps)
	if err != nil {
		return nil, err
	}

	deps := Deps{Runner: r.exec, Output: r.opts.Output}
	status := make(map[string]types.StepStatus, len(ordered))
	results := make([]types.StepResult, 0, len(ordered))
	aborted := false

	for _, step := range ordered {
		var res types.StepResult
		switch {
		case !step.Enabled:
			res = stepResult(step, types.StatusDisabled, "disabled in manifest")
		case aborted:
			res = stepResult(step, types.StatusSkipped, "not run: an earlier step failed and fail-fast is set")
		case ctx.Err() != nil:
			res = stepResult(step, types.StatusSkipped, "cancelled")
		default:
			if dep, st, ok := unsatisfied(step, status); ok {
				res = stepResult(step, types.StatusSkipped, fmt.Sprintf("dependency %s is %s", dep, st))
				break
			}
			res = r.ensure(ctx, step, deps)
		}

		status[step.ID()] = res.Status
		results = append(results, res)
		r.log(step, res)

		if res.Status == types.StatusFailed && r.opts.FailFast {
			aborted = true
		}
	}
	return results, nil
}

func (r *Runner) ensure(ctx context.Context, step types.InstallStep, deps Deps) types.StepResult {
	inst, err := New(step, deps)
	if err != nil {
		res := stepResult(step, types.StatusFailed, "invalid step")
		res.Error = err.Error()
		return res
	}
	return Ensure(ctx, inst, step, r.opts.DryRun)
}

func (r *Runner) log(step types.InstallStep, res types.StepResult) {
	var ev *zerolog.Event
	switch res.Status {
	case types.StatusFailed:
		ev = r.logger.Error()
	case types.StatusSkipped:
		ev = r.logger.Warn()
	default:
		ev = r.logger.Info()
	}
	ev.Str("step", step.ID()).
		Str("kind", step.Kind).
		Str("status", string(res.Status)).
		Str("detail", res.Message).
		Str("error", res.Error).
		Dur("duration", res.Duration).
		Msg("Step finished")
}

func unsatisfied(step types.InstallStep, status map[string]types.StepStatus) (string, types.StepStatus, bool) {
	for _, dep := range step.DependsOn {
		id := DependencyID(step, dep)
		if st := status[id]; !st.IsSatisfied() {
			return id, st, true
		}
	}
	return "", "", false
}

func stepResult(step types.InstallStep, status types.StepStatus, msg string) types.StepResult {
	return types.StepResult{
		Name:     step.Name,
		Plugin:   step.Plugin,
		Category: step.Category,
		Status:   status,
		Message:  msg,
	}
}

// HasFailures reports whether any result failed.
func HasFailures(results []types.StepResult) bool {
	for _, r := range results {
		if r.Status == types.StatusFailed {
			return true
		}
	}
	return false
}
