package executor

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/logging"
	"github.com/rs/zerolog"
)

// Command is a single process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env is appended to the current process environment.
	Env []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Interactive connects the process to the terminal's own stdin, stdout
	// and stderr. Nothing is captured.
	Interactive bool
}

// String renders the command line for logs and dry-run output.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result holds the captured output of a finished command. ExitCode is -1
// when the process could not be started.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner runs commands and resolves binaries.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
	LookPath(name string) (string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	logger zerolog.Logger
}

// NewExecRunner creates a Runner backed by real processes.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{logger: logging.GetLogger("executor")}
}

// Run executes cmd and waits for it. Output is always captured; when the
// command has its own writers the output is teed to them as well.
func (r *ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	logging.LogCommand(c.Name, c.Args)

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdin = c.Stdin

	var stdout, stderr bytes.Buffer
	switch {
	case c.Interactive:
		cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	default:
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		if c.Stdout != nil {
			cmd.Stdout = io.MultiWriter(c.Stdout, &stdout)
		}
		if c.Stderr != nil {
			cmd.Stderr = io.MultiWriter(c.Stderr, &stderr)
		}
	}

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err == nil {
		r.logger.Debug().
			Str("command", c.String()).
			Dur("duration", res.Duration).
			Msg("Command succeeded")
		return res, nil
	}

	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	} else {
		res.ExitCode = -1
	}

	r.logger.Debug().
		Err(err).
		Str("command", c.String()).
		Int("exitCode", res.ExitCode).
		Str("stderr", res.Stderr).
		Msg("Command failed")

	return res, errors.Wrapf(err, errors.ErrCommand, "command failed: %s", c.String()).
		WithDetail("exit_code", res.ExitCode).
		WithDetail("stderr", strings.TrimSpace(res.Stderr))
}

// LookPath resolves a binary on PATH. A missing binary is reported as a
// MISSING_PREREQUISITE error.
func (r *ExecRunner) LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrMissingPrerequisite, "%s not found on PATH", name).
			WithDetail("binary", name)
	}
	return path, nil
}

// ExitCode extracts the exit code recorded in a Run error. It returns 0 for
// nil and -1 when no code is available.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if code, ok := errors.GetErrorDetails(err)["exit_code"].(int); ok {
		return code
	}
	return -1
}

// IsNonZeroExit reports whether err is a command that ran and exited with a
// non-zero status, as opposed to one that could not be started.
func IsNonZeroExit(err error) bool {
	return ExitCode(err) > 0
}

// ShellQuote quotes s for safe use as a single POSIX shell word.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// EnvPair formats a KEY=value environment entry.
func EnvPair(key string, value interface{}) string {
	return fmt.Sprintf("%s=%v", key, value)
}
