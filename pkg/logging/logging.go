// Package logging owns devplug's zerolog setup. Diagnostics go to stderr
// in console form and, as JSON lines, to devplug.log in the state dir.
// Command results never pass through here; they go through pkg/ui to
// stdout so `eval "$(devplug env)"` stays clean.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/paths"
)

// EnvVerbose raises the verbosity when set to a positive integer or "true".
// Hooks receive it so plugin scripts can match devplug's own log level.
const EnvVerbose = "DEVPLUG_VERBOSE"

// pidField tags every line so nested invocations (a hook or a Dockerfile
// calling devplug again) can be told apart in the shared log file. The
// console leaves it out.
const pidField = "pid"

// SetupLogger installs the global logger for a -v count, after folding in
// DEVPLUG_VERBOSE. A log file that cannot be opened is reported once and
// logging continues on stderr alone.
func SetupLogger(verbosity int) {
	verbosity = EffectiveVerbosity(verbosity)
	zerolog.SetGlobalLevel(levelFor(verbosity))

	writers := []io.Writer{consoleWriter(os.Stderr)}
	logFile := getLogFilePath()
	file, fileErr := openLogFile(logFile)
	if fileErr == nil {
		writers = append(writers, file)
	}

	ctx := zerolog.New(io.MultiWriter(writers...)).With().
		Timestamp().
		Int(pidField, os.Getpid())
	if verbosity >= 2 {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()

	if fileErr != nil {
		log.Warn().Err(fileErr).Str("path", logFile).Msg("Failed to create log file, logging to console only")
	}
	log.Debug().Int("verbosity", verbosity).Str("logFile", logFile).Msg("Logger initialized")
}

// levelFor maps a verbosity count to a level: warn, info, debug, then
// trace for anything higher.
func levelFor(verbosity int) zerolog.Level {
	switch {
	case verbosity <= 0:
		return zerolog.WarnLevel
	case verbosity == 1:
		return zerolog.InfoLevel
	case verbosity == 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

func consoleWriter(out *os.File) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:           out,
		TimeFormat:    time.Kitchen,
		NoColor:       os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(out.Fd()),
		FieldsExclude: []string{pidField},
	}
}

// EffectiveVerbosity combines the -v count with DEVPLUG_VERBOSE. The higher
// of the two wins.
func EffectiveVerbosity(flagCount int) int {
	raw := os.Getenv(EnvVerbose)
	if raw == "" {
		return flagCount
	}
	envLevel, err := strconv.Atoi(raw)
	if err != nil {
		if b, berr := strconv.ParseBool(raw); berr == nil && b {
			envLevel = 1
		} else {
			return flagCount
		}
	}
	if envLevel > flagCount {
		return envLevel
	}
	return flagCount
}

// GetLogger returns a contextualized logger with the given name
func GetLogger(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// getLogFilePath returns the path to the log file: DEVPLUG_STATE_DIR, then
// XDG_STATE_HOME/devplug, then ~/.local/state/devplug. The environment is
// read on every call rather than through paths.New, since the logger is
// installed before the repo root is known.
func getLogFilePath() string {
	if dir := os.Getenv(paths.EnvStateDir); dir != "" {
		return filepath.Join(dir, paths.LogFileName)
	}
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return paths.LogFileName
		}
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, paths.DevplugDirName, paths.LogFileName)
}

func openLogFile(logPath string) (*os.File, error) {
	logDir := filepath.Dir(logPath)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrDirCreate, "cannot create log directory %s", logDir)
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileWrite, "cannot open log file %s", logPath)
	}
	return file, nil
}

// LogCommand logs an external command before it runs.
func LogCommand(cmd string, args []string) {
	log.Debug().
		Str("command", cmd).
		Strs("args", args).
		Msg("Executing command")
}

// LogOperationStart logs the start of an operation and returns a function
// that logs its completion with the elapsed time.
func LogOperationStart(logger zerolog.Logger, operation string) func() {
	start := time.Now()
	logger.Debug().
		Str("operation", operation).
		Msg("Operation started")

	return func() {
		logger.Debug().
			Str("operation", operation).
			Dur("duration", time.Since(start)).
			Msg("Operation completed")
	}
}
