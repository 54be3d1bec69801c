package installer

import (
	"context"
	"strings"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/executor"
	"github.com/arthur-debert/devplug/pkg/types"
)

func init() {
	Register("apt", newAptInstaller)
	Register("npm", newNpmInstaller)
	Register("pip", newPipInstaller)
}

// packageManager installs a list of packages with one command and probes
// them one at a time.
type packageManager struct {
	step     types.InstallStep
	deps     Deps
	packages []string

	probeBin  string
	probeArgs func(pkg string) []string
	// probeOK inspects a zero-exit probe; nil means exit 0 is enough.
	probeOK func(res executor.Result) bool

	installBin  string
	installArgs []string
	preInstall  [][]string
	env         []string
	sudo        bool
}

func (m *packageManager) Name() string { return m.step.ID() }

func (m *packageManager) Probe(ctx context.Context) (bool, error) {
	if _, err := m.deps.Runner.LookPath(m.probeBin); err != nil {
		return false, err
	}
	for _, pkg := range m.packages {
		res, err := m.deps.Runner.Run(ctx, executor.Command{
			Name: m.probeBin,
			Args: m.probeArgs(pkg),
			Env:  m.env,
		})
		if err != nil {
			if executor.IsNonZeroExit(err) {
				return false, nil
			}
			return false, errors.Wrapf(err, errors.ErrProbe, "probe %s failed", m.probeBin)
		}
		if m.probeOK != nil && !m.probeOK(res) {
			return false, nil
		}
	}
	return true, nil
}

func (m *packageManager) Install(ctx context.Context) error {
	if _, err := m.deps.Runner.LookPath(m.installBin); err != nil {
		return err
	}
	for _, args := range m.preInstall {
		if err := m.run(ctx, m.installBin, args); err != nil {
			return err
		}
	}
	args := append(append([]string{}, m.installArgs...), m.packages...)
	return m.run(ctx, m.installBin, args)
}

func (m *packageManager) run(ctx context.Context, bin string, args []string) error {
	if m.sudo {
		args = append([]string{bin}, args...)
		bin = "sudo"
	}
	_, err := m.deps.Runner.Run(ctx, executor.Command{
		Name:   bin,
		Args:   args,
		Env:    m.env,
		Stdout: m.deps.Output,
		Stderr: m.deps.Output,
	})
	if err != nil {
		return errors.Wrapf(err, errors.ErrInstall, "%s %s failed", bin, strings.Join(args, " ")).
			WithDetail("step", m.step.ID())
	}
	return nil
}

// newAptInstaller installs Debian packages. Params: packages, update, sudo.
func newAptInstaller(step types.InstallStep, deps Deps) (Installer, error) {
	p := params{step}
	pkgs, err := p.packages()
	if err != nil {
		return nil, err
	}
	m := &packageManager{
		step:     step,
		deps:     deps,
		packages: pkgs,
		probeBin: "dpkg-query",
		probeArgs: func(pkg string) []string {
			return []string{"-W", "-f=${Status}", pkg}
		},
		probeOK: func(res executor.Result) bool {
			return strings.Contains(res.Stdout, "install ok installed")
		},
		installBin:  "apt-get",
		installArgs: []string{"install", "-y", "--no-install-recommends"},
		env:         []string{"DEBIAN_FRONTEND=noninteractive"},
		sudo:        p.boolean("sudo"),
	}
	if p.boolean("update") {
		m.preInstall = append(m.preInstall, []string{"update"})
	}
	return m, nil
}

// newNpmInstaller installs global npm packages. Params: packages, sudo.
func newNpmInstaller(step types.InstallStep, deps Deps) (Installer, error) {
	p := params{step}
	pkgs, err := p.packages()
	if err != nil {
		return nil, err
	}
	return &packageManager{
		step:     step,
		deps:     deps,
		packages: pkgs,
		probeBin: "npm",
		probeArgs: func(pkg string) []string {
			return []string{"ls", "-g", "--depth=0", npmPackageName(pkg)}
		},
		installBin:  "npm",
		installArgs: []string{"install", "-g"},
		sudo:        p.boolean("sudo"),
	}, nil
}

// newPipInstaller installs Python packages. Params: packages, pip (binary,
// default pip3), user, break_system_packages, sudo.
func newPipInstaller(step types.InstallStep, deps Deps) (Installer, error) {
	p := params{step}
	pkgs, err := p.packages()
	if err != nil {
		return nil, err
	}
	bin := p.str("pip")
	if bin == "" {
		bin = "pip3"
	}
	args := []string{"install"}
	if p.boolean("user") {
		args = append(args, "--user")
	}
	if p.boolean("break_system_packages") {
		args = append(args, "--break-system-packages")
	}
	return &packageManager{
		step:     step,
		deps:     deps,
		packages: pkgs,
		probeBin: bin,
		probeArgs: func(pkg string) []string {
			return []string{"show", pipPackageName(pkg)}
		},
		installBin:  bin,
		installArgs: args,
		sudo:        p.boolean("sudo"),
	}, nil
}

// npmPackageName strips a version suffix: "@scope/pkg@1.2" -> "@scope/pkg".
func npmPackageName(spec string) string {
	if i := strings.LastIndex(spec, "@"); i > 0 {
		return spec[:i]
	}
	return spec
}

// pipPackageName strips extras and version specifiers: "black[d]>=23" -> "black".
func pipPackageName(spec string) string {
	if i := strings.IndexAny(spec, "=<>!~[; "); i > 0 {
		return spec[:i]
	}
	return spec
}
