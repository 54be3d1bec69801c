// Package credentials resolves credential bindings into environment
// variables. A binding names a file in the credentials directory and says
// how to turn it into values: read it, execute it, or source it in bash
// and capture a list of variables.
package credentials

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/executor"
	"github.com/arthur-debert/devplug/pkg/logging"
	"github.com/arthur-debert/devplug/pkg/types"
)

// Export is one resolved variable.
type Export struct {
	Key   string
	Value string
	// From is the binding file the value came from.
	From string
}

// Result is the outcome of resolving a set of bindings. Later exports of
// the same key replace earlier ones.
type Result struct {
	Exports  []Export
	Warnings []string
}

func (r *Result) set(key, value, from string) {
	for i := range r.Exports {
		if r.Exports[i].Key == key {
			r.Exports[i] = Export{Key: key, Value: value, From: from}
			return
		}
	}
	r.Exports = append(r.Exports, Export{Key: key, Value: value, From: from})
}

func (r *Result) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Get returns the value exported for key.
func (r Result) Get(key string) (string, bool) {
	for _, e := range r.Exports {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// Environ renders the exports as KEY=value pairs.
func (r Result) Environ() []string {
	env := make([]string, 0, len(r.Exports))
	for _, e := range r.Exports {
		env = append(env, executor.EnvPair(e.Key, e.Value))
	}
	return env
}

// Loader resolves bindings against a credentials directory.
type Loader struct {
	Dir     string
	CertEnv []string
	Runner  executor.Runner
	logger  zerolog.Logger
}

// NewLoader creates a Loader. Relative binding files resolve against dir.
func NewLoader(dir string, certEnv []string, runner executor.Runner) *Loader {
	return &Loader{
		Dir:     dir,
		CertEnv: certEnv,
		Runner:  runner,
		logger:  logging.GetLogger("credentials"),
	}
}

// Load resolves every binding in order. Problems with individual bindings
// are warnings; only a cancelled context is an error.
func (l *Loader) Load(ctx context.Context, bindings []types.CredentialBinding) (Result, error) {
	var res Result
	for _, b := range bindings {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		l.resolve(ctx, b, &res)
		l.certBundle(b, &res)
	}
	return res, nil
}

func (l *Loader) path(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	if l.Dir == "" {
		return "", errors.Newf(errors.ErrCredential, "no credentials directory configured for %s", file)
	}
	return filepath.Join(l.Dir, file), nil
}

func (l *Loader) resolve(ctx context.Context, b types.CredentialBinding, res *Result) {
	p, err := l.path(b.File)
	if err == nil {
		if _, statErr := os.Stat(p); statErr != nil {
			err = errors.Newf(errors.ErrCredential, "credential file %s not found", p)
		}
	}
	if err != nil {
		res.warnf("%s", errors.Message(err))
		l.applyDefaults(b, res)
		return
	}

	switch b.EffectiveMode() {
	case types.CredentialFile:
		data, err := os.ReadFile(p)
		if err != nil {
			res.warnf("cannot read %s: %v", p, err)
			l.applyDefaults(b, res)
			return
		}
		res.set(b.Env, strings.TrimSpace(string(data)), b.File)

	case types.CredentialExec:
		out, err := l.Runner.Run(ctx, executor.Command{Name: p, Dir: filepath.Dir(p)})
		if err != nil {
			res.warnf("credential script %s failed: %s", p, errors.Message(err))
			l.applyDefaults(b, res)
			return
		}
		res.set(b.Env, strings.TrimSpace(out.Stdout), b.File)

	case types.CredentialSource:
		values, err := l.source(ctx, p, b.Vars)
		if err != nil {
			res.warnf("cannot source %s: %s", p, errors.Message(err))
			l.applyDefaults(b, res)
			return
		}
		for _, v := range b.Vars {
			value, ok := values[v]
			if (!ok || value == "") && hasDefault(b.Defaults, v) {
				value, ok = b.Defaults[v], true
			}
			if ok {
				res.set(v, value, b.File)
			}
		}
	}

	l.logger.Debug().
		Str("file", b.File).
		Str("mode", string(b.EffectiveMode())).
		Msg("Resolved credential")
}

// applyDefaults exports the binding's defaults when its file could not
// be used.
func (l *Loader) applyDefaults(b types.CredentialBinding, res *Result) {
	if b.EffectiveMode() == types.CredentialSource {
		for _, v := range b.Vars {
			if hasDefault(b.Defaults, v) {
				res.set(v, b.Defaults[v], "default")
			}
		}
		return
	}
	if b.Env != "" && b.Default != "" {
		res.set(b.Env, b.Default, "default")
	}
}

func hasDefault(defaults map[string]string, key string) bool {
	_, ok := defaults[key]
	return ok
}

// sourceScript sources $1 with its output discarded, then prints each
// remaining argument as "<set><value>\0" where <set> is 1 or 0.
const sourceScript = `f="$1"; shift
source "$f" >/dev/null 2>&1 </dev/null
for __v in "$@"; do
  if [ -n "${!__v+x}" ]; then printf '1%s\0' "${!__v}"; else printf '0\0'; fi
done`

func (l *Loader) source(ctx context.Context, script string, vars []string) (map[string]string, error) {
	args := append([]string{"-c", sourceScript, "devplug-source", script}, vars...)
	out, err := l.Runner.Run(ctx, executor.Command{Name: "bash", Args: args, Dir: filepath.Dir(script)})
	if err != nil {
		return nil, err
	}

	fields := strings.Split(out.Stdout, "\x00")
	values := make(map[string]string, len(vars))
	for i, v := range vars {
		if i >= len(fields) {
			break
		}
		if strings.HasPrefix(fields[i], "1") {
			values[v] = fields[i][1:]
		}
	}
	return values, nil
}

func (l *Loader) certBundle(b types.CredentialBinding, res *Result) {
	if b.CertBundle == "" {
		return
	}
	p, err := l.path(b.CertBundle)
	if err != nil {
		res.warnf("%s", errors.Message(err))
		return
	}
	if _, err := os.Stat(p); err != nil {
		res.warnf("certificate bundle %s not found", p)
		return
	}
	for _, key := range l.CertEnv {
		res.set(key, p, b.CertBundle)
	}
}

// FormatExports renders export lines suitable for eval in a POSIX shell,
// sorted by key.
func FormatExports(exports []Export) string {
	sorted := append([]Export(nil), exports...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	var b strings.Builder
	for _, e := range sorted {
		fmt.Fprintf(&b, "export %s=%s\n", e.Key, executor.ShellQuote(e.Value))
	}
	return b.String()
}
