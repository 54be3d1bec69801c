// Package homelinks shares the primary container user's dotfiles with a
// secondary user by symlinking them into the secondary home.
package homelinks

import (
	"os"
	"path/filepath"
	"time"

	"github.com/arthur-debert/devplug/pkg/config"
	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/logging"
	"github.com/arthur-debert/devplug/pkg/types"
)

// Category groups home link results in run summaries.
const Category = "home-links"

// Options selects the homes and the names to link.
type Options struct {
	PrimaryHome   string
	SecondaryHome string
	Dotfiles      []string
	DryRun        bool
}

// OptionsFromConfig builds Options from the home config section.
func OptionsFromConfig(h config.Home, dryRun bool) Options {
	return Options{
		PrimaryHome:   h.PrimaryHome,
		SecondaryHome: h.SecondaryHomeDir(),
		Dotfiles:      h.Dotfiles,
		DryRun:        dryRun,
	}
}

// Ensure links <primary>/<name> to <secondary>/<name> for every dotfile.
// Existing links to the same source are left alone; anything else already
// at the destination is never touched. With no secondary home nothing is
// done.
func Ensure(opts Options) ([]types.StepResult, error) {
	if opts.SecondaryHome == "" {
		return nil, nil
	}
	if opts.PrimaryHome == "" {
		return nil, errors.New(errors.ErrConfigValid, "home.primary_home must be set when a secondary user is configured")
	}

	logger := logging.GetLogger("homelinks")
	results := make([]types.StepResult, 0, len(opts.Dotfiles))
	for _, name := range opts.Dotfiles {
		start := time.Now()
		res := ensureOne(opts, name)
		res.Duration = time.Since(start)

		logger.Debug().
			Str("dotfile", name).
			Str("status", string(res.Status)).
			Str("detail", res.Message).
			Msg("Home link")
		results = append(results, res)
	}
	return results, nil
}

func ensureOne(opts Options, name string) types.StepResult {
	src := filepath.Join(opts.PrimaryHome, name)
	dest := filepath.Join(opts.SecondaryHome, name)
	res := types.StepResult{Name: name, Category: Category}

	if _, err := os.Stat(src); err != nil {
		res.Status = types.StatusSkipped
		res.Message = "no " + src
		return res
	}

	if info, err := os.Lstat(dest); err == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			if target, err := os.Readlink(dest); err == nil && target == src {
				res.Status = types.StatusAlreadyPresent
				return res
			}
			res.Status = types.StatusSkipped
			res.Message = dest + " links elsewhere; left untouched"
			return res
		}
		res.Status = types.StatusSkipped
		res.Message = dest + " exists; left untouched"
		return res
	}

	if opts.DryRun {
		res.Status = types.StatusWouldInstall
		res.Message = "would link " + dest + " -> " + src
		return res
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		res.Status = types.StatusFailed
		res.Error = errors.Wrapf(err, errors.ErrDirCreate, "cannot create %s", filepath.Dir(dest)).Error()
		return res
	}
	if err := os.Symlink(src, dest); err != nil {
		res.Status = types.StatusFailed
		res.Error = errors.Wrapf(err, errors.ErrSymlinkCreate, "cannot link %s", dest).Error()
		return res
	}
	res.Status = types.StatusInstalled
	res.Message = dest + " -> " + src
	return res
}
