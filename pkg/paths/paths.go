// Package paths provides centralized path handling for devplug.
// It implements XDG Base Directory specification compliance for devplug's
// own state and knows the fixed layout of a plugin directory.
package paths

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/devplug/pkg/errors"
)

// Environment variable names. The first four form the hook environment
// contract and are also read by the configuration loader.
const (
	EnvPluginRoot = "DEVPLUG_PLUGIN_ROOT"
	EnvRepoRoot   = "DEVPLUG_REPO_ROOT"
	EnvHostUID    = "DEVPLUG_HOST_UID"
	EnvShiftedGID = "DEVPLUG_SHIFTED_GID"
	EnvPhase      = "DEVPLUG_PHASE"

	// EnvDataDir overrides the XDG data directory for devplug
	EnvDataDir = "DEVPLUG_DATA_DIR"

	// EnvConfigDir overrides the XDG config directory for devplug
	EnvConfigDir = "DEVPLUG_CONFIG_DIR"

	// EnvStateDir overrides the XDG state directory for devplug
	EnvStateDir = "DEVPLUG_STATE_DIR"
)

// Plugin directory layout. These names are fixed so that plugins are
// portable between hosts.
const (
	DevplugDirName   = "devplug"
	ManifestFile     = "plugin.yaml"
	HooksDir         = "hooks"
	MountedFilesDir  = "mounted-files"
	TemplatesDir     = "templates"
	OverrideTemplate = "docker-compose.override.yml.template"
	ReadmeFile       = "README.md"

	RegistryFile   = "registry.yaml"
	LastRunFile    = "last-run.json"
	LogFileName    = "devplug.log"
	RepoConfigFile = ".devplug.toml"
)

// Paths resolves the repository root and devplug's own directories.
type Paths struct {
	repoRoot     string
	usedFallback bool

	dataDir   string
	configDir string
	stateDir  string
}

// New creates a Paths instance. If repoRoot is empty it is resolved from
// DEVPLUG_REPO_ROOT, then the enclosing git repository, then the working
// directory.
func New(repoRoot string) (*Paths, error) {
	p := &Paths{}

	if repoRoot == "" {
		root, usedFallback, err := findRepoRoot()
		if err != nil {
			return nil, err
		}
		p.repoRoot = root
		p.usedFallback = usedFallback
	} else {
		p.repoRoot = ExpandHome(repoRoot)
	}

	absRoot, err := filepath.Abs(p.repoRoot)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to get absolute path for repo root")
	}
	p.repoRoot = absRoot

	p.setupXDGDirs()
	return p, nil
}

func (p *Paths) setupXDGDirs() {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		p.dataDir = ExpandHome(dir)
	} else {
		p.dataDir = filepath.Join(xdg.DataHome, DevplugDirName)
	}

	if dir := os.Getenv(EnvConfigDir); dir != "" {
		p.configDir = ExpandHome(dir)
	} else {
		p.configDir = filepath.Join(xdg.ConfigHome, DevplugDirName)
	}

	if dir := os.Getenv(EnvStateDir); dir != "" {
		p.stateDir = ExpandHome(dir)
	} else {
		p.stateDir = filepath.Join(xdg.StateHome, DevplugDirName)
	}
}

// RepoRoot is the development-environment repository root.
func (p *Paths) RepoRoot() string { return p.repoRoot }

// UsedFallback reports whether the working directory was used as repo root.
func (p *Paths) UsedFallback() bool { return p.usedFallback }

func (p *Paths) DataDir() string   { return p.dataDir }
func (p *Paths) ConfigDir() string { return p.configDir }
func (p *Paths) StateDir() string  { return p.stateDir }

// RegistryPath is the plugin registry file.
func (p *Paths) RegistryPath() string {
	return filepath.Join(p.dataDir, RegistryFile)
}

// LastRunPath is where the most recent run summary is persisted.
func (p *Paths) LastRunPath() string {
	return filepath.Join(p.stateDir, LastRunFile)
}

// LogFilePath is the append-only log file.
func (p *Paths) LogFilePath() string {
	return filepath.Join(p.stateDir, LogFileName)
}

// UserConfigCandidates lists user config files in load order.
func (p *Paths) UserConfigCandidates() []string {
	return []string{
		filepath.Join(p.configDir, "config.toml"),
		filepath.Join(p.configDir, "config.yaml"),
	}
}

// RepoConfigPath is the per-repository config file.
func (p *Paths) RepoConfigPath() string {
	return filepath.Join(p.repoRoot, RepoConfigFile)
}

// ResolveInRepo makes rel absolute against the repo root. Absolute paths
// are returned cleaned.
func (p *Paths) ResolveInRepo(rel string) string {
	rel = ExpandHome(rel)
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Join(p.repoRoot, rel)
}

// ManifestPath returns the manifest file for a plugin root.
func ManifestPath(pluginRoot string) string {
	return filepath.Join(pluginRoot, ManifestFile)
}

// HookPath returns the script path for a hook file name in a plugin root.
func HookPath(pluginRoot, script string) string {
	return filepath.Join(pluginRoot, HooksDir, script)
}

// MountRoot returns the bind-mount scan root of a plugin.
func MountRoot(pluginRoot string) string {
	return filepath.Join(pluginRoot, MountedFilesDir)
}

// OverrideTemplatePath returns the plugin's compose override template.
func OverrideTemplatePath(pluginRoot string) string {
	return filepath.Join(pluginRoot, TemplatesDir, OverrideTemplate)
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

// IsWithin reports whether path is root or lies below it. Both must be
// clean absolute paths.
func IsWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// findRepoRoot determines the repo root using the following priority:
// 1. DEVPLUG_REPO_ROOT environment variable
// 2. Git repository root
// 3. Current working directory (fallback)
func findRepoRoot() (string, bool, error) {
	if root := os.Getenv(EnvRepoRoot); root != "" {
		return ExpandHome(root), false, nil
	}

	if gitRoot, err := findGitRoot(); err == nil && gitRoot != "" {
		return gitRoot, false, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", false, errors.Wrapf(err, errors.ErrFileAccess, "failed to get current directory")
	}
	return cwd, true, nil
}

func findGitRoot() (string, error) {
	output, err := exec.Command("git", "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", err
	}
	gitRoot := strings.TrimSpace(string(output))
	if gitRoot == "" {
		return "", errors.New(errors.ErrNotFound, "git root is empty")
	}
	return gitRoot, nil
}
