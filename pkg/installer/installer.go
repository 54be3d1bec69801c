package installer

import (
	"context"
	"io"
	"time"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/executor"
	"github.com/arthur-debert/devplug/pkg/registry"
	"github.com/arthur-debert/devplug/pkg/types"
)

// Installer is one idempotent installation unit.
type Installer interface {
	Name() string
	// Probe reports whether the unit is already present. A
	// MISSING_PREREQUISITE error means the probe itself cannot run.
	Probe(ctx context.Context) (bool, error)
	Install(ctx context.Context) error
}

// Deps are the collaborators handed to every factory.
type Deps struct {
	Runner executor.Runner
	// Output receives the streamed output of install commands. May be nil.
	Output io.Writer
}

// Factory builds an Installer for a step of a given kind.
type Factory func(step types.InstallStep, deps Deps) (Installer, error)

var kinds = registry.NewIndex[Factory]("step kind")

// Register makes a step kind available. Kinds register from init
// functions; registering a kind twice panics.
func Register(kind string, f Factory) {
	registry.MustRegister(kinds, kind, f)
}

// HasKind reports whether a factory is registered for kind.
func HasKind(kind string) bool {
	return kinds.Has(kind)
}

// Kinds lists registered kinds in alphabetical order.
func Kinds() []string {
	return kinds.Names()
}

// New builds the Installer for step.
func New(step types.InstallStep, deps Deps) (Installer, error) {
	f, err := kinds.Get(step.Kind)
	if err != nil {
		return nil, errors.Newf(errors.ErrConfigValid, "unknown step kind %q", step.Kind).
			WithDetail("step", step.ID())
	}

	inst, err := f(step, deps)
	if err != nil {
		return nil, err
	}

	// An explicit probe in the manifest takes precedence over the kind's own.
	if !step.Probe.IsZero() {
		inst = &probeOverride{Installer: inst, step: step, runner: deps.Runner}
	}
	return inst, nil
}

// Ensure probes inst and installs it when absent. In dry-run mode nothing
// is installed and absent units report would-install.
func Ensure(ctx context.Context, inst Installer, step types.InstallStep, dryRun bool) types.StepResult {
	start := time.Now()
	result := types.StepResult{
		Name:     step.Name,
		Plugin:   step.Plugin,
		Category: step.Category,
	}
	finish := func(status types.StepStatus, msg string, err error) types.StepResult {
		result.Status = status
		result.Message = msg
		if err != nil {
			result.Error = err.Error()
		}
		result.Duration = time.Since(start)
		return result
	}

	present, err := inst.Probe(ctx)
	if err != nil {
		if errors.IsErrorCode(err, errors.ErrMissingPrerequisite) {
			return finish(types.StatusSkipped, prerequisiteMessage(err), nil)
		}
		return finish(types.StatusFailed, "probe failed", err)
	}
	if present {
		return finish(types.StatusAlreadyPresent, "", nil)
	}

	if dryRun {
		return finish(types.StatusWouldInstall, "", nil)
	}

	if err := inst.Install(ctx); err != nil {
		if errors.IsErrorCode(err, errors.ErrMissingPrerequisite) {
			return finish(types.StatusSkipped, prerequisiteMessage(err), nil)
		}
		return finish(types.StatusFailed, "install failed", err)
	}
	return finish(types.StatusInstalled, "", nil)
}

func prerequisiteMessage(err error) string {
	return "missing prerequisite: " + errors.Message(err)
}
