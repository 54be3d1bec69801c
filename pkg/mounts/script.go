package mounts

import (
	"path"
	"strings"

	"github.com/arthur-debert/devplug/pkg/executor"
	"github.com/arthur-debert/devplug/pkg/filesystem"
	"github.com/arthur-debert/devplug/pkg/types"
)

// SymlinkScript renders the bash script that re-creates links inside the
// container. Both ends of every link are container paths.
func SymlinkScript(links []types.SymlinkEntry) string {
	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	b.WriteString("# Generated by devplug. Re-creates plugin symlinks inside the container.\n")
	b.WriteString("set -euo pipefail\n")

	for _, l := range links {
		b.WriteString("\n")
		b.WriteString("mkdir -p " + executor.ShellQuote(path.Dir(l.Link)) + "\n")
		b.WriteString("ln -sf " + executor.ShellQuote(l.Target) + " " + executor.ShellQuote(l.Link) + "\n")
	}
	return b.String()
}

// WriteSymlinkScript writes the script for links to dest, mode 0755.
func WriteSymlinkScript(dest string, links []types.SymlinkEntry) error {
	return filesystem.WriteFileAtomic(dest, []byte(SymlinkScript(links)), 0o755)
}
