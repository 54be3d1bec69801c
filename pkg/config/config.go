package config

import (
	"time"
)

// Config is the complete, immutable devplug configuration.
type Config struct {
	General     General     `koanf:"general" toml:"general"`
	Runtime     Runtime     `koanf:"runtime" toml:"runtime"`
	Container   Container   `koanf:"container" toml:"container"`
	Mounts      Mounts      `koanf:"mounts" toml:"mounts"`
	Credentials Credentials `koanf:"credentials" toml:"credentials"`
	IDMap       IDMap       `koanf:"idmap" toml:"idmap"`
	Home        Home        `koanf:"home" toml:"home"`
}

// General holds run-wide policy.
type General struct {
	FailFast bool   `koanf:"fail_fast" toml:"fail_fast"`
	DryRun   bool   `koanf:"dry_run" toml:"dry_run"`
	Output   string `koanf:"output" toml:"output"`
}

// Runtime holds the hook environment contract values.
type Runtime struct {
	PluginRoot string `koanf:"plugin_root" toml:"plugin_root"`
	RepoRoot   string `koanf:"repo_root" toml:"repo_root"`
	HostUID    int    `koanf:"host_uid" toml:"host_uid"`
	Verbosity  int    `koanf:"verbosity" toml:"verbosity"`
}

// Container configures the container engine invocation.
type Container struct {
	Engine       string `koanf:"engine" toml:"engine"`
	ComposeFile  string `koanf:"compose_file" toml:"compose_file"`
	OverrideFile string `koanf:"override_file" toml:"override_file"`
	ProjectDir   string `koanf:"project_dir" toml:"project_dir"`
	ProjectName  string `koanf:"project_name" toml:"project_name"`
	Service      string `koanf:"service" toml:"service"`
	Shell        string `koanf:"shell" toml:"shell"`
}

// Mounts configures the mount generator.
type Mounts struct {
	PreferDirectories          bool          `koanf:"prefer_directories" toml:"prefer_directories"`
	MinDirectoryDepth          int           `koanf:"min_directory_depth" toml:"min_directory_depth"`
	Protected                  []string      `koanf:"protected" toml:"protected"`
	Skip                       []string      `koanf:"skip" toml:"skip"`
	SymlinkScript              string        `koanf:"symlink_script" toml:"symlink_script"`
	SymlinkScriptContainerPath string        `koanf:"symlink_script_container_path" toml:"symlink_script_container_path"`
	Extra                      []ExtraMount  `koanf:"extra" toml:"extra,omitempty"`
	WatchDebounce              time.Duration `koanf:"watch_debounce" toml:"watch_debounce"`
}

// ExtraMount is a host path mounted in addition to the scanned tree, for
// example SSH keys.
type ExtraMount struct {
	Host      string `koanf:"host" toml:"host" yaml:"host"`
	Container string `koanf:"container" toml:"container" yaml:"container"`
	Mode      string `koanf:"mode" toml:"mode" yaml:"mode"`
}

// Credentials configures credential loading.
type Credentials struct {
	Dir     string   `koanf:"dir" toml:"dir"`
	CertEnv []string `koanf:"cert_env" toml:"cert_env"`
}

// IDMap configures Sysbox-shifted GID arithmetic.
type IDMap struct {
	Offset       int    `koanf:"offset" toml:"offset"`
	SubGIDFile   string `koanf:"subgid_file" toml:"subgid_file"`
	ContainerGID int    `koanf:"container_gid" toml:"container_gid"`
}

// Home configures dotfile links for a secondary container user.
type Home struct {
	PrimaryHome   string   `koanf:"primary_home" toml:"primary_home"`
	SecondaryUser string   `koanf:"secondary_user" toml:"secondary_user"`
	SecondaryHome string   `koanf:"secondary_home" toml:"secondary_home"`
	Dotfiles      []string `koanf:"dotfiles" toml:"dotfiles"`
}

// ShiftGID returns the container GID to shift: ContainerGID, or the host
// UID when unset.
func (c Config) ShiftGID() int {
	if c.IDMap.ContainerGID >= 0 {
		return c.IDMap.ContainerGID
	}
	return c.Runtime.HostUID
}

// SecondaryHomeDir returns the secondary user's home, defaulting to
// /home/<user>.
func (h Home) SecondaryHomeDir() string {
	if h.SecondaryHome != "" {
		return h.SecondaryHome
	}
	if h.SecondaryUser == "" {
		return ""
	}
	return "/home/" + h.SecondaryUser
}
