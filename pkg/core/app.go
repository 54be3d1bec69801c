package core

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/devplug/pkg/compose"
	"github.com/arthur-debert/devplug/pkg/config"
	"github.com/arthur-debert/devplug/pkg/datastore"
	"github.com/arthur-debert/devplug/pkg/executor"
	"github.com/arthur-debert/devplug/pkg/logging"
	"github.com/arthur-debert/devplug/pkg/paths"
	"github.com/arthur-debert/devplug/pkg/registry"
	"github.com/arthur-debert/devplug/pkg/summary"
)

// App holds the immutable configuration and the collaborators shared by
// all operations.
type App struct {
	Config config.Config
	Paths  *paths.Paths
	Runner executor.Runner
	Store  *registry.Store
	Data   datastore.DataStore

	// Stdout and Stderr receive the output of commands devplug runs.
	Stdout io.Writer
	Stderr io.Writer

	logger zerolog.Logger
}

// New creates an App. A nil runner means real processes.
func New(cfg config.Config, p *paths.Paths, runner executor.Runner, stdout, stderr io.Writer) *App {
	if runner == nil {
		runner = executor.NewExecRunner()
	}
	return &App{
		Config: cfg,
		Paths:  p,
		Runner: runner,
		Store:  registry.NewStore(p.RegistryPath()),
		Data:   datastore.New(p.LastRunPath()),
		Stdout: stdout,
		Stderr: stderr,
		logger: logging.GetLogger("core"),
	}
}

// RepoRoot is the development-environment repository root.
func (a *App) RepoRoot() string {
	if a.Config.Runtime.RepoRoot != "" {
		return a.Config.Runtime.RepoRoot
	}
	return a.Paths.RepoRoot()
}

func (a *App) dryRun() bool   { return a.Config.General.DryRun }
func (a *App) failFast() bool { return a.Config.General.FailFast }

// Engine returns the container engine driver for this repository.
func (a *App) Engine() *compose.Engine {
	return compose.New(a.Runner, a.Config.Container, a.RepoRoot(), compose.Options{
		DryRun: a.dryRun(),
		Stdout: a.Stdout,
		Stderr: a.Stderr,
	})
}

func (a *App) newSummary(command string) *summary.RunSummary {
	return summary.New(command, a.dryRun())
}

// finish closes the summary and persists it. Persisting is best effort.
func (a *App) finish(s *summary.RunSummary) *summary.RunSummary {
	s.Finish()
	if err := a.Data.SaveRun(s); err != nil {
		a.logger.Warn().Err(err).Str("command", s.Command).Msg("Cannot persist run summary")
	}
	return s
}

// LastRun returns the persisted summary of the previous run.
func (a *App) LastRun() (*summary.RunSummary, error) {
	return a.Data.LastRun()
}
