package installer

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/executor"
	"github.com/arthur-debert/devplug/pkg/types"
)

func init() {
	Register("git", newGitInstaller)
}

// gitInstaller clones a repository. Present means <dest>/.git exists.
type gitInstaller struct {
	step  types.InstallStep
	deps  Deps
	url   string
	dest  string
	ref   string
	depth int
}

func newGitInstaller(step types.InstallStep, deps Deps) (Installer, error) {
	p := params{step}
	url, err := p.required("url")
	if err != nil {
		return nil, err
	}
	if _, err := p.required("dest"); err != nil {
		return nil, err
	}
	return &gitInstaller{
		step:  step,
		deps:  deps,
		url:   url,
		dest:  p.path("dest"),
		ref:   p.str("ref"),
		depth: p.integer("depth"),
	}, nil
}

func (g *gitInstaller) Name() string { return g.step.ID() }

func (g *gitInstaller) Probe(ctx context.Context) (bool, error) {
	info, err := os.Stat(filepath.Join(g.dest, ".git"))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, errors.ErrProbe, "cannot stat %s", g.dest)
	}
	return info.IsDir(), nil
}

func (g *gitInstaller) Install(ctx context.Context) error {
	if _, err := g.deps.Runner.LookPath("git"); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(g.dest), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "cannot create parent of %s", g.dest)
	}

	args := []string{"clone"}
	if g.depth > 0 {
		args = append(args, "--depth", strconv.Itoa(g.depth))
	}
	if g.ref != "" {
		args = append(args, "--branch", g.ref)
	}
	args = append(args, g.url, g.dest)

	_, err := g.deps.Runner.Run(ctx, executor.Command{
		Name:   "git",
		Args:   args,
		Stdout: g.deps.Output,
		Stderr: g.deps.Output,
	})
	if err != nil {
		return errors.Wrapf(err, errors.ErrInstall, "git clone %s failed", g.url).
			WithDetail("step", g.step.ID())
	}
	return nil
}
