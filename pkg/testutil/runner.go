package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/executor"
)

type response struct {
	prefix string
	fn     func(cmd executor.Command) executor.Result
}

// FakeRunner is an executor.Runner that records every command and answers
// from scripted responses. Unmatched commands succeed with empty output.
type FakeRunner struct {
	mu        sync.Mutex
	calls     []executor.Command
	responses []response
	missing   map[string]bool
}

// NewFakeRunner creates an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{missing: map[string]bool{}}
}

// On scripts the exit code and stdout for commands whose command line
// starts with prefix. Later registrations win.
func (f *FakeRunner) On(prefix string, exitCode int, stdout string) *FakeRunner {
	return f.OnFunc(prefix, func(executor.Command) executor.Result {
		return executor.Result{ExitCode: exitCode, Stdout: stdout}
	})
}

// OnFunc scripts a dynamic response, for tests where state changes
// between calls.
func (f *FakeRunner) OnFunc(prefix string, fn func(cmd executor.Command) executor.Result) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, response{prefix: prefix, fn: fn})
	return f
}

// Missing marks binaries as absent from PATH.
func (f *FakeRunner) Missing(names ...string) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range names {
		f.missing[n] = true
	}
	return f
}

// Run implements executor.Runner.
func (f *FakeRunner) Run(_ context.Context, cmd executor.Command) (executor.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	var fn func(executor.Command) executor.Result
	line := cmd.String()
	for i := len(f.responses) - 1; i >= 0; i-- {
		if strings.HasPrefix(line, f.responses[i].prefix) {
			fn = f.responses[i].fn
			break
		}
	}
	f.mu.Unlock()

	var res executor.Result
	if fn != nil {
		res = fn(cmd)
	}
	if res.Stdout != "" && cmd.Stdout != nil {
		_, _ = cmd.Stdout.Write([]byte(res.Stdout))
	}
	if res.Stderr != "" && cmd.Stderr != nil {
		_, _ = cmd.Stderr.Write([]byte(res.Stderr))
	}
	if res.ExitCode != 0 {
		return res, errors.Newf(errors.ErrCommand, "command failed: %s", line).
			WithDetail("exit_code", res.ExitCode).
			WithDetail("stderr", res.Stderr)
	}
	return res, nil
}

// LookPath implements executor.Runner.
func (f *FakeRunner) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing[name] {
		return "", errors.Newf(errors.ErrMissingPrerequisite, "%s not found on PATH", name)
	}
	return "/usr/bin/" + name, nil
}

// Calls returns a copy of every recorded command.
func (f *FakeRunner) Calls() []executor.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]executor.Command, len(f.calls))
	copy(out, f.calls)
	return out
}

// CommandLines returns the recorded commands as strings.
func (f *FakeRunner) CommandLines() []string {
	var lines []string
	for _, c := range f.Calls() {
		lines = append(lines, c.String())
	}
	return lines
}

// CallsMatching returns the recorded commands starting with prefix.
func (f *FakeRunner) CallsMatching(prefix string) []executor.Command {
	var out []executor.Command
	for _, c := range f.Calls() {
		if strings.HasPrefix(c.String(), prefix) {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls but keeps scripted responses.
func (f *FakeRunner) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// EnvValue returns the value of key in cmd.Env, or "".
func EnvValue(cmd executor.Command, key string) string {
	for _, kv := range cmd.Env {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			return v
		}
	}
	return ""
}
