package mounts

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/arthur-debert/devplug/pkg/config"
	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/paths"
	"github.com/arthur-debert/devplug/pkg/types"
)

// Options controls mount generation.
type Options struct {
	PreferDirectories          bool
	MinDirectoryDepth          int
	Protected                  []string
	Skip                       []string
	SymlinkScript              string
	SymlinkScriptContainerPath string
	// Extra mounts from configuration. Relative host paths are resolved
	// against ExtraBase.
	Extra         []config.ExtraMount
	ExtraBase     string
	WatchDebounce time.Duration
}

// OptionsFromConfig builds Options from the mounts config section.
func OptionsFromConfig(m config.Mounts, repoRoot string) Options {
	return Options{
		PreferDirectories:          m.PreferDirectories,
		MinDirectoryDepth:          m.MinDirectoryDepth,
		Protected:                  m.Protected,
		Skip:                       m.Skip,
		SymlinkScript:              m.SymlinkScript,
		SymlinkScriptContainerPath: m.SymlinkScriptContainerPath,
		Extra:                      m.Extra,
		ExtraBase:                  repoRoot,
		WatchDebounce:              m.WatchDebounce,
	}
}

// Result is the outcome of a scan.
type Result struct {
	Mounts   []types.MountEntry
	Symlinks []types.SymlinkEntry
	Warnings []string
}

func (r *Result) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Result) merge(o Result) {
	r.Mounts = append(r.Mounts, o.Mounts...)
	r.Symlinks = append(r.Symlinks, o.Symlinks...)
	r.Warnings = append(r.Warnings, o.Warnings...)
}

// ModeFor classifies permission bits: rw iff owner-write or group-write.
func ModeFor(perm fs.FileMode) types.MountMode {
	if perm&0o220 != 0 {
		return types.MountReadWrite
	}
	return types.MountReadOnly
}

// Scan walks root and returns its mounts and symlinks. A missing root
// yields an empty result.
func Scan(root string, opts Options) (Result, error) {
	var res Result

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return res, nil
		}
		return res, errors.Wrapf(err, errors.ErrFileAccess, "cannot stat %s", root)
	}
	if !info.IsDir() {
		return res, errors.Newf(errors.ErrInvalidInput, "%s is not a directory", root)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return res, errors.Wrapf(err, errors.ErrFileAccess, "cannot resolve %s", root)
	}

	s := &scanner{root: absRoot, opts: opts, res: &res}
	if err := s.walk(absRoot, "/"); err != nil {
		return res, err
	}
	return res, nil
}

type scanner struct {
	root string
	opts Options
	res  *Result
}

func (s *scanner) skipped(name string) bool {
	for _, skip := range s.opts.Skip {
		if name == skip {
			return true
		}
	}
	return false
}

func (s *scanner) walk(hostDir, containerDir string) error {
	entries, err := os.ReadDir(hostDir)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", hostDir)
	}

	for _, e := range entries {
		if s.skipped(e.Name()) {
			continue
		}
		host := filepath.Join(hostDir, e.Name())
		container := path.Join(containerDir, e.Name())

		info, err := os.Lstat(host)
		if err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "cannot stat %s", host)
		}

		switch {
		case info.Mode()&fs.ModeSymlink != 0:
			s.symlink(host, container)

		case info.IsDir():
			if s.dirMountable(host, container, info) {
				s.res.Mounts = append(s.res.Mounts, types.MountEntry{
					HostPath:      host,
					ContainerPath: container,
					Mode:          ModeFor(info.Mode().Perm()),
					Kind:          types.MountDir,
				})
				continue
			}
			if err := s.walk(host, container); err != nil {
				return err
			}

		case info.Mode().IsRegular():
			s.res.Mounts = append(s.res.Mounts, types.MountEntry{
				HostPath:      host,
				ContainerPath: container,
				Mode:          ModeFor(info.Mode().Perm()),
				Kind:          types.MountFile,
			})

		default:
			s.res.warnf("skipping %s: unsupported file type %s", host, info.Mode().Type())
		}
	}
	return nil
}

// dirMountable reports whether a directory can replace its files with a
// single mount: deep enough, not protected, and its subtree holds at least
// one regular file, nothing else but directories, and every file has the
// directory's own mode.
func (s *scanner) dirMountable(host, container string, info fs.FileInfo) bool {
	if !s.opts.PreferDirectories || depth(container) < s.opts.MinDirectoryDepth {
		return false
	}
	for _, pattern := range s.opts.Protected {
		if ok, _ := path.Match(pattern, container); ok {
			return false
		}
	}

	want := ModeFor(info.Mode().Perm())
	files := 0
	eligible := true
	_ = filepath.WalkDir(host, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			eligible = false
			return filepath.SkipAll
		}
		if p == host {
			return nil
		}
		if s.skipped(d.Name()) {
			eligible = false
			return filepath.SkipAll
		}
		switch {
		case d.Type()&fs.ModeSymlink != 0:
			eligible = false
		case d.IsDir():
			return nil
		case d.Type().IsRegular():
			fi, err := d.Info()
			if err != nil || ModeFor(fi.Mode().Perm()) != want {
				eligible = false
			}
			files++
		default:
			eligible = false
		}
		if !eligible {
			return filepath.SkipAll
		}
		return nil
	})
	return eligible && files > 0
}

// symlink validates a link and records it, or warns.
func (s *scanner) symlink(host, container string) {
	target, reason := ValidateSymlink(s.root, host)
	if reason != "" {
		s.res.warnf("skipping symlink %s: %s", container, reason)
		return
	}
	// skipped names are never mounted, so the link would dangle in the container
	for _, part := range strings.Split(strings.Trim(target, "/"), "/") {
		if s.skipped(part) {
			s.res.warnf("skipping symlink %s: target %s is excluded from mounts", container, target)
			return
		}
	}
	s.res.Symlinks = append(s.res.Symlinks, types.SymlinkEntry{
		Link:   container,
		Target: target,
		Source: host,
	})
}

// ValidateSymlink checks that link points, relatively, at an existing path
// inside root. It returns the target's container path, or a reason the
// link is rejected.
func ValidateSymlink(root, link string) (string, string) {
	target, err := os.Readlink(link)
	if err != nil {
		return "", fmt.Sprintf("cannot read link: %v", err)
	}
	if filepath.IsAbs(target) {
		return "", fmt.Sprintf("absolute target %s", target)
	}

	resolved := filepath.Clean(filepath.Join(filepath.Dir(link), target))
	rel, err := filepath.Rel(root, resolved)
	if err != nil || rel == "." || !paths.IsWithin(root, resolved) {
		return "", fmt.Sprintf("target %s is outside %s", target, root)
	}

	// Follow any chained links and make sure the final path stays inside.
	final, err := filepath.EvalSymlinks(resolved)
	if err != nil {
		return "", fmt.Sprintf("target %s does not exist", target)
	}
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		realRoot = root
	}
	if !paths.IsWithin(realRoot, final) {
		return "", fmt.Sprintf("target %s resolves outside %s", target, root)
	}

	return "/" + filepath.ToSlash(rel), ""
}

func depth(container string) int {
	trimmed := strings.Trim(container, "/")
	if trimmed == "" {
		return 0
	}
	return strings.Count(trimmed, "/") + 1
}
