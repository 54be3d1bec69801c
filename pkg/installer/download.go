package installer

import (
	"context"
	"os"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/executor"
	"github.com/arthur-debert/devplug/pkg/filesystem"
	"github.com/arthur-debert/devplug/pkg/types"
)

func init() {
	Register("download", newDownloadInstaller)
}

// downloadInstaller fetches a single file with curl. Present means dest
// exists.
type downloadInstaller struct {
	step types.InstallStep
	deps Deps
	url  string
	dest string
	mode os.FileMode
}

func newDownloadInstaller(step types.InstallStep, deps Deps) (Installer, error) {
	p := params{step}
	url, err := p.required("url")
	if err != nil {
		return nil, err
	}
	if _, err := p.required("dest"); err != nil {
		return nil, err
	}
	mode, err := p.fileMode("mode", 0644)
	if err != nil {
		return nil, err
	}
	return &downloadInstaller{step: step, deps: deps, url: url, dest: p.path("dest"), mode: mode}, nil
}

func (d *downloadInstaller) Name() string { return d.step.ID() }

func (d *downloadInstaller) Probe(ctx context.Context) (bool, error) {
	_, err := os.Stat(d.dest)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrapf(err, errors.ErrProbe, "cannot stat %s", d.dest)
}

// Install downloads into a temporary sibling of dest and renames it into
// place, so an interrupted transfer never leaves a file that counts as installed.
func (d *downloadInstaller) Install(ctx context.Context) error {
	if _, err := d.deps.Runner.LookPath("curl"); err != nil {
		return err
	}
	return filesystem.ReplaceByName(d.dest, d.mode, func(tmp string) error {
		_, err := d.deps.Runner.Run(ctx, executor.Command{
			Name:   "curl",
			Args:   []string{"-fsSL", "-o", tmp, d.url},
			Stderr: d.deps.Output,
		})
		if err != nil {
			return errors.Wrapf(err, errors.ErrInstall, "download of %s failed", d.url).
				WithDetail("step", d.step.ID())
		}
		return nil
	})
}
