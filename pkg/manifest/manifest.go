package manifest

import (
	"os"
	"path/filepath"

	"github.com/arthur-debert/devplug/pkg/config"
	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/paths"
	"github.com/arthur-debert/devplug/pkg/types"
	"gopkg.in/yaml.v3"
)

// Manifest is the parsed plugin.yaml of a plugin directory.
type Manifest struct {
	Name        string                    `yaml:"name" validate:"required,pluginname"`
	Version     string                    `yaml:"version" validate:"required"`
	Description string                    `yaml:"description,omitempty"`
	MinDevplug  string                    `yaml:"min_devplug,omitempty"`
	Steps       []Step                    `yaml:"steps,omitempty" validate:"dive"`
	Credentials []types.CredentialBinding `yaml:"credentials,omitempty" validate:"dive"`
	Mounts      Mounts                    `yaml:"mounts,omitempty"`
	Home        Home                      `yaml:"home,omitempty"`

	// Root is the absolute plugin directory.
	Root string `yaml:"-"`
	// Hooks lists the phases with a hook script present, in lifecycle order.
	Hooks []types.Phase `yaml:"-"`
}

// Step is an install step as written in the manifest.
type Step struct {
	Name      string                 `yaml:"name" validate:"required,stepname"`
	Kind      string                 `yaml:"kind" validate:"required"`
	Category  string                 `yaml:"category,omitempty"`
	Enabled   *bool                  `yaml:"enabled,omitempty"`
	DependsOn []string               `yaml:"depends_on,omitempty"`
	Params    map[string]interface{} `yaml:"params,omitempty"`
	Probe     types.ProbeSpec        `yaml:"probe,omitempty"`
}

// IsEnabled defaults to true.
func (s Step) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Mounts holds manifest-level mount settings.
type Mounts struct {
	Extra []config.ExtraMount `yaml:"extra,omitempty" validate:"dive"`
	Skip  []string            `yaml:"skip,omitempty"`
}

// Home lists dotfiles this plugin wants linked into a secondary user's home.
type Home struct {
	Dotfiles []string `yaml:"dotfiles,omitempty"`
}

// Parse decodes manifest bytes without validating them.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "invalid plugin manifest YAML")
	}
	return &m, nil
}

// Read parses the manifest in pluginRoot and detects its hooks, without
// validating.
func Read(pluginRoot string) (*Manifest, error) {
	root, err := filepath.Abs(paths.ExpandHome(pluginRoot))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot resolve %s", pluginRoot)
	}

	path := paths.ManifestPath(root)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrPluginInvalid, "no %s in %s", paths.ManifestFile, root).
				WithDetail("path", path)
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", path)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "cannot parse %s", path).WithDetail("path", path)
	}
	m.Root = root
	m.Hooks = DetectHooks(root)
	return m, nil
}

// Load reads and validates the manifest in pluginRoot.
func Load(pluginRoot string) (*Manifest, error) {
	m, err := Read(pluginRoot)
	if err != nil {
		return nil, err
	}
	if err := Validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

// DetectHooks returns the phases whose hook script exists under root.
func DetectHooks(root string) []types.Phase {
	var phases []types.Phase
	for _, phase := range types.AllPhases() {
		info, err := os.Stat(paths.HookPath(root, phase.ScriptName()))
		if err == nil && info.Mode().IsRegular() {
			phases = append(phases, phase)
		}
	}
	return phases
}

// HasHook reports whether the plugin ships a script for phase.
func (m *Manifest) HasHook(phase types.Phase) bool {
	for _, p := range m.Hooks {
		if p == phase {
			return true
		}
	}
	return false
}

// InstallSteps converts the manifest steps into runtime steps. Steps
// without a category are grouped under the plugin name.
func (m *Manifest) InstallSteps() []types.InstallStep {
	steps := make([]types.InstallStep, 0, len(m.Steps))
	for _, s := range m.Steps {
		category := s.Category
		if category == "" {
			category = m.Name
		}
		steps = append(steps, types.InstallStep{
			Name:       s.Name,
			Plugin:     m.Name,
			PluginRoot: m.Root,
			Category:   category,
			Kind:       s.Kind,
			Enabled:    s.IsEnabled(),
			DependsOn:  append([]string(nil), s.DependsOn...),
			Params:     s.Params,
			Probe:      s.Probe,
		})
	}
	return steps
}
