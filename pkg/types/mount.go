package types

import "fmt"

// MountMode is the access mode of a bind mount.
type MountMode string

const (
	MountReadOnly  MountMode = "ro"
	MountReadWrite MountMode = "rw"
)

// MountKind records why a mount entry exists.
type MountKind string

const (
	MountFile   MountKind = "file"
	MountDir    MountKind = "dir"
	MountExtra  MountKind = "extra"
	MountScript MountKind = "script"
)

// MountEntry is a single bind mount declaration. Entries are derived on every
// invocation and never persisted.
type MountEntry struct {
	HostPath      string    `json:"host_path" yaml:"host_path"`
	ContainerPath string    `json:"container_path" yaml:"container_path"`
	Mode          MountMode `json:"mode" yaml:"mode"`
	Kind          MountKind `json:"kind" yaml:"kind"`
}

// String renders the entry in compose short syntax: host:container:mode.
func (m MountEntry) String() string {
	return fmt.Sprintf("%s:%s:%s", m.HostPath, m.ContainerPath, m.Mode)
}

// SymlinkEntry is a symlink found under the scan root that will be
// re-created inside the container. Both paths are container paths.
type SymlinkEntry struct {
	Link   string `json:"link"`
	Target string `json:"target"`
	Source string `json:"source"`
}
