package manifest

import (
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/arthur-debert/devplug/internal/version"
	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/installer"
	"github.com/arthur-debert/devplug/pkg/types"
	"github.com/go-playground/validator/v10"
)

var (
	pluginNameRe = regexp.MustCompile(`^[a-z][a-z0-9_-]{1,62}$`)
	stepNameRe   = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)
	envNameRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		mustRegister := func(tag string, re *regexp.Regexp) {
			if err := validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
				return re.MatchString(fl.Field().String())
			}); err != nil {
				panic(err)
			}
		}
		mustRegister("pluginname", pluginNameRe)
		mustRegister("stepname", stepNameRe)
		mustRegister("envname", envNameRe)
	})
	return validate
}

// Problems returns every problem found in m. An empty result means the
// manifest is valid.
func Problems(m *Manifest) []string {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if err := getValidator().Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) {
			for _, fe := range verrs {
				add("%s", describeFieldError(fe))
			}
		} else {
			add("%v", err)
		}
	}

	if m.Version != "" {
		if _, err := semver.NewVersion(m.Version); err != nil {
			add("version %q is not a valid semantic version", m.Version)
		}
	}

	if m.MinDevplug != "" {
		if msg := checkMinVersion(m.MinDevplug); msg != "" {
			add("%s", msg)
		}
	}

	seen := make(map[string]bool, len(m.Steps))
	for _, s := range m.Steps {
		if s.Name == "" {
			continue
		}
		if seen[s.Name] {
			add("step %q is declared more than once", s.Name)
		}
		seen[s.Name] = true
	}

	for _, s := range m.Steps {
		if s.Kind != "" && !installer.HasKind(s.Kind) {
			add("step %q has unknown kind %q (known: %s)", s.Name, s.Kind, strings.Join(installer.Kinds(), ", "))
		}
		if (s.Kind == "script" || s.Kind == "shell") && s.Probe.IsZero() {
			add("step %q of kind %s needs a probe (command, path or check)", s.Name, s.Kind)
		}
		for _, dep := range s.DependsOn {
			if dep == s.Name {
				add("step %q depends on itself", s.Name)
				continue
			}
			if !strings.Contains(dep, "/") && !seen[dep] {
				add("step %q depends on undeclared step %q", s.Name, dep)
			}
		}
	}

	// Cycle detection only makes sense once every reference resolves.
	if len(problems) == 0 && m.Name != "" {
		local := make([]types.InstallStep, 0, len(m.Steps))
		for _, s := range m.InstallSteps() {
			var deps []string
			for _, d := range s.DependsOn {
				if !strings.Contains(d, "/") {
					deps = append(deps, d)
				}
			}
			s.DependsOn = deps
			local = append(local, s)
		}
		if _, err := installer.Order(local); err != nil {
			add("%s", errors.Message(err))
		}
	}

	for i, c := range m.Credentials {
		switch c.EffectiveMode() {
		case types.CredentialSource:
			if len(c.Vars) == 0 {
				add("credential %d (%s): mode source needs vars", i, c.File)
			}
		default:
			if c.Env == "" {
				add("credential %d (%s): env is required for mode %s", i, c.File, c.EffectiveMode())
			}
		}
	}

	for _, em := range m.Mounts.Extra {
		if em.Host == "" || !strings.HasPrefix(em.Container, "/") {
			add("extra mount %q -> %q needs a host path and an absolute container path", em.Host, em.Container)
		}
		if em.Mode != "" && em.Mode != "ro" && em.Mode != "rw" {
			add("extra mount %q has mode %q, want ro or rw", em.Host, em.Mode)
		}
	}

	return problems
}

// Validate returns a CONFIG_INVALID error listing every problem, or nil.
func Validate(m *Manifest) error {
	problems := Problems(m)
	if len(problems) == 0 {
		return nil
	}
	name := m.Name
	if name == "" {
		name = m.Root
	}
	return errors.Newf(errors.ErrConfigValid, "plugin %s is invalid: %s", name, strings.Join(problems, "; ")).
		WithDetail("problems", problems).
		WithDetail("path", m.Root)
}

// ProblemsFromError extracts the problem list attached by Validate.
func ProblemsFromError(err error) []string {
	if p, ok := errors.GetErrorDetails(err)["problems"].([]string); ok {
		return p
	}
	if err != nil {
		return []string{errors.Message(err)}
	}
	return nil
}

// checkMinVersion returns a problem message when the running devplug does
// not satisfy constraint. Development builds satisfy every constraint.
func checkMinVersion(constraint string) string {
	var c *semver.Constraints
	// a bare version means "at least"
	if v, err := semver.NewVersion(constraint); err == nil {
		c, _ = semver.NewConstraint(">= " + v.String())
	} else if c, err = semver.NewConstraint(constraint); err != nil {
		return fmt.Sprintf("min_devplug %q is neither a version nor a constraint", constraint)
	}
	if version.IsDev() {
		return ""
	}
	current, err := semver.NewVersion(version.Version)
	if err != nil {
		return ""
	}
	if !c.Check(current) {
		return fmt.Sprintf("plugin requires devplug %s, running %s", constraint, version.Version)
	}
	return ""
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Manifest.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "pluginname":
		return fmt.Sprintf("%s %q must match %s", field, fe.Value(), pluginNameRe.String())
	case "stepname":
		return fmt.Sprintf("%s %q is not a valid step name", field, fe.Value())
	case "envname":
		return fmt.Sprintf("%s %q is not a valid environment variable name", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s %q must be one of: %s", field, fe.Value(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
