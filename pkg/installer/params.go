package installer

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/paths"
	"github.com/arthur-debert/devplug/pkg/types"
	"github.com/spf13/cast"
)

// params wraps the free-form step params with typed accessors.
type params struct {
	step types.InstallStep
}

func (p params) str(key string) string {
	return strings.TrimSpace(cast.ToString(p.step.Params[key]))
}

func (p params) strs(key string) []string {
	v, ok := p.step.Params[key]
	if !ok || v == nil {
		return nil
	}
	return cast.ToStringSlice(v)
}

func (p params) boolean(key string) bool {
	return cast.ToBool(p.step.Params[key])
}

func (p params) integer(key string) int {
	return cast.ToInt(p.step.Params[key])
}

func (p params) required(key string) (string, error) {
	v := p.str(key)
	if v == "" {
		return "", errors.Newf(errors.ErrConfigValid, "step %s: param %q is required", p.step.ID(), key).
			WithDetail("step", p.step.ID())
	}
	return v, nil
}

// packages accepts either a "packages" list (or whitespace separated
// string) or a single "package".
func (p params) packages() ([]string, error) {
	pkgs := p.strs("packages")
	if single := p.str("package"); single != "" {
		pkgs = append(pkgs, single)
	}
	if len(pkgs) == 0 {
		return nil, errors.Newf(errors.ErrConfigValid, "step %s: no packages listed", p.step.ID()).
			WithDetail("step", p.step.ID())
	}
	return pkgs, nil
}

// path resolves a path param: ~ is expanded and relative paths are taken
// from the plugin root.
func (p params) path(key string) string {
	return resolvePath(p.step.PluginRoot, p.str(key))
}

// fileMode reads a file mode. Strings are parsed as octal ("0755");
// integers are used as-is, which matches YAML's own reading of an unquoted
// 0755.
func (p params) fileMode(key string, def os.FileMode) (os.FileMode, error) {
	v, ok := p.step.Params[key]
	if !ok || v == nil {
		return def, nil
	}
	if s, isString := v.(string); isString {
		n, err := strconv.ParseUint(strings.TrimSpace(s), 8, 32)
		if err != nil {
			return 0, errors.Wrapf(err, errors.ErrConfigValid, "step %s: invalid file mode %q", p.step.ID(), s)
		}
		return os.FileMode(n) & os.ModePerm, nil
	}
	n, err := cast.ToUint32E(v)
	if err != nil {
		return 0, errors.Wrapf(err, errors.ErrConfigValid, "step %s: invalid file mode %v", p.step.ID(), v)
	}
	return os.FileMode(n) & os.ModePerm, nil
}

func resolvePath(root, path string) string {
	if path == "" {
		return ""
	}
	path = paths.ExpandHome(path)
	if filepath.IsAbs(path) || root == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(root, path)
}
