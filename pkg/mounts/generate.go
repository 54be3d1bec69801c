package mounts

import (
	"os"
	"path"
	"path/filepath"

	"github.com/arthur-debert/devplug/pkg/config"
	"github.com/arthur-debert/devplug/pkg/logging"
	"github.com/arthur-debert/devplug/pkg/paths"
	"github.com/arthur-debert/devplug/pkg/types"
)

// Source is one plugin contributing mounts.
type Source struct {
	Name string
	Root string
	// Extra mounts declared by the plugin manifest, relative to Root.
	Extra []config.ExtraMount
	// Skip adds names to the configured skip list for this plugin only.
	Skip []string
}

// Generate scans every source in order and appends the configured extra
// mounts. The first mount claiming a container path wins. When any valid
// symlink was found, a read-only mount for the symlink script is added.
func Generate(sources []Source, opts Options) (Result, error) {
	logger := logging.GetLogger("mounts")
	var res Result

	for _, src := range sources {
		srcOpts := opts
		srcOpts.Skip = append(append([]string{}, opts.Skip...), src.Skip...)

		scanned, err := Scan(paths.MountRoot(src.Root), srcOpts)
		if err != nil {
			return res, err
		}
		logger.Debug().
			Str("plugin", src.Name).
			Int("mounts", len(scanned.Mounts)).
			Int("symlinks", len(scanned.Symlinks)).
			Msg("Scanned mounted files")
		res.merge(scanned)

		for _, extra := range src.Extra {
			extraMount(&res, extra, src.Root)
		}
	}

	for _, extra := range opts.Extra {
		extraMount(&res, extra, opts.ExtraBase)
	}

	res.Mounts = dedupe(&res, res.Mounts)

	if len(res.Symlinks) > 0 && opts.SymlinkScript != "" && opts.SymlinkScriptContainerPath != "" {
		res.Mounts = append(res.Mounts, types.MountEntry{
			HostPath:      opts.SymlinkScript,
			ContainerPath: opts.SymlinkScriptContainerPath,
			Mode:          types.MountReadOnly,
			Kind:          types.MountScript,
		})
	}
	return res, nil
}

func extraMount(res *Result, extra config.ExtraMount, base string) {
	host := paths.ExpandHome(extra.Host)
	if !filepath.IsAbs(host) && base != "" {
		host = filepath.Join(base, host)
	}
	host = filepath.Clean(host)

	if _, err := os.Stat(host); err != nil {
		res.warnf("skipping extra mount %s: %v", extra.Host, err)
		return
	}

	mode := types.MountMode(extra.Mode)
	if mode == "" {
		mode = types.MountReadOnly
	}
	res.Mounts = append(res.Mounts, types.MountEntry{
		HostPath:      host,
		ContainerPath: path.Clean(extra.Container),
		Mode:          mode,
		Kind:          types.MountExtra,
	})
}

// dedupe keeps the first mount claiming a container path. A later mount
// that lands inside an earlier one, or encloses it, is dropped too: docker
// would create its mount point inside the other mount's host directory.
func dedupe(res *Result, mounts []types.MountEntry) []types.MountEntry {
	out := make([]types.MountEntry, 0, len(mounts))
next:
	for _, m := range mounts {
		for _, prev := range out {
			switch {
			case prev.ContainerPath == m.ContainerPath:
				res.warnf("%s is already mounted from %s; ignoring %s", m.ContainerPath, prev.HostPath, m.HostPath)
				continue next
			case paths.IsWithin(prev.ContainerPath, m.ContainerPath):
				res.warnf("%s is inside %s, already mounted from %s; ignoring %s",
					m.ContainerPath, prev.ContainerPath, prev.HostPath, m.HostPath)
				continue next
			case paths.IsWithin(m.ContainerPath, prev.ContainerPath):
				res.warnf("%s would cover %s, already mounted from %s; ignoring %s",
					m.ContainerPath, prev.ContainerPath, prev.HostPath, m.HostPath)
				continue next
			}
		}
		out = append(out, m)
	}
	return out
}
