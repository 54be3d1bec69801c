// Package compose drives the container engine's compose front end with
// the project's compose file plus the generated override file.
package compose

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/arthur-debert/devplug/pkg/config"
	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/executor"
	"github.com/arthur-debert/devplug/pkg/logging"
)

// legacyEngine is the standalone v1 binary, which takes no "compose"
// subcommand.
const legacyEngine = "docker-compose"

// Options controls how commands are run.
type Options struct {
	DryRun bool
	// Stdout and Stderr receive engine output. May be nil.
	Stdout io.Writer
	Stderr io.Writer
	// StdinIsTerminal overrides terminal detection for attach.
	StdinIsTerminal func() bool
}

// Engine runs compose verbs for one project.
type Engine struct {
	runner     executor.Runner
	cfg        config.Container
	projectDir string
	opts       Options
	logger     zerolog.Logger
}

// New creates an Engine. The project directory is cfg.ProjectDir relative
// to repoRoot.
func New(runner executor.Runner, cfg config.Container, repoRoot string, opts Options) *Engine {
	dir := cfg.ProjectDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(repoRoot, dir)
	}
	if opts.StdinIsTerminal == nil {
		opts.StdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	}
	return &Engine{
		runner:     runner,
		cfg:        cfg,
		projectDir: filepath.Clean(dir),
		opts:       opts,
		logger:     logging.GetLogger("compose"),
	}
}

// ProjectDir is the directory holding the compose files.
func (e *Engine) ProjectDir() string { return e.projectDir }

// OverridePath is where the generated override file lives.
func (e *Engine) OverridePath() string {
	return e.resolve(e.cfg.OverrideFile)
}

func (e *Engine) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(e.projectDir, name)
}

// Args returns the full argument list for a compose verb.
func (e *Engine) Args(verb ...string) []string {
	var args []string
	if e.cfg.Engine != legacyEngine {
		args = append(args, "compose")
	}
	args = append(args, "-f", e.resolve(e.cfg.ComposeFile))
	if _, err := os.Stat(e.OverridePath()); err == nil {
		args = append(args, "-f", e.OverridePath())
	}
	args = append(args, "--project-directory", e.projectDir)
	if e.cfg.ProjectName != "" {
		args = append(args, "-p", e.cfg.ProjectName)
	}
	return append(args, verb...)
}

// Build builds the service images.
func (e *Engine) Build(ctx context.Context, noCache bool) error {
	verb := []string{"build"}
	if noCache {
		verb = append(verb, "--no-cache")
	}
	return e.run(ctx, false, verb...)
}

// Up starts the services.
func (e *Engine) Up(ctx context.Context, detach bool) error {
	verb := []string{"up"}
	if detach {
		verb = append(verb, "-d")
	}
	return e.run(ctx, !detach, verb...)
}

// Down stops and removes the services.
func (e *Engine) Down(ctx context.Context) error {
	return e.run(ctx, false, "down")
}

// Attach opens the configured shell in the service container. Without a
// terminal on stdin, exec runs with -T so the engine allocates no TTY.
func (e *Engine) Attach(ctx context.Context) error {
	verb := []string{"exec"}
	interactive := e.opts.StdinIsTerminal()
	if !interactive {
		verb = append(verb, "-T")
	}
	verb = append(verb, e.cfg.Service, e.cfg.Shell)
	return e.run(ctx, interactive, verb...)
}

// Check reports a MISSING_PREREQUISITE error when the engine binary is not
// on PATH.
func (e *Engine) Check() error {
	if _, err := e.runner.LookPath(e.cfg.Engine); err != nil {
		return errors.Wrapf(err, errors.ErrMissingPrerequisite, "container engine %s is not installed", e.cfg.Engine).
			WithDetail("engine", e.cfg.Engine)
	}
	return nil
}

func (e *Engine) run(ctx context.Context, interactive bool, verb ...string) error {
	if err := e.Check(); err != nil {
		return err
	}

	cmd := executor.Command{
		Name:        e.cfg.Engine,
		Args:        e.Args(verb...),
		Dir:         e.projectDir,
		Stdout:      e.opts.Stdout,
		Stderr:      e.opts.Stderr,
		Interactive: interactive,
	}

	if e.opts.DryRun {
		e.logger.Info().Str("command", cmd.String()).Msg("Dry run, not starting engine")
		if e.opts.Stdout != nil {
			_, _ = fmt.Fprintf(e.opts.Stdout, "would run: %s\n", cmd.String())
		}
		return nil
	}

	e.logger.Info().Str("command", cmd.String()).Msg("Running container engine")
	if _, err := e.runner.Run(ctx, cmd); err != nil {
		return errors.Wrapf(err, errors.ErrCommand, "%s %s failed", e.cfg.Engine, verb[0]).
			WithDetail("exit_code", executor.ExitCode(err))
	}
	return nil
}
