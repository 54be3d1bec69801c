package core

import (
	"os"
	"path/filepath"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/manifest"
	"github.com/arthur-debert/devplug/pkg/paths"
	"github.com/arthur-debert/devplug/pkg/registry"
	"github.com/arthur-debert/devplug/pkg/types"
)

// Plugin is a registered plugin with its loaded manifest.
type Plugin struct {
	Entry    types.PluginRegistryEntry
	Manifest *manifest.Manifest
}

// Name is the registered plugin name.
func (p Plugin) Name() string { return p.Entry.Name }

// Root is the plugin directory.
func (p Plugin) Root() string { return p.Manifest.Root }

// RegisterPlugin validates the plugin at path and adds it to the
// registry, or updates the existing entry of the same name.
func (a *App) RegisterPlugin(path string, enabled *bool) (types.PluginRegistryEntry, bool, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return types.PluginRegistryEntry{}, false, err
	}

	entry, updated, err := a.Store.Register(registry.RegisterOptions{
		Name:    m.Name,
		Path:    m.Root,
		Version: m.Version,
		Enabled: enabled,
	})
	if err != nil {
		return entry, false, err
	}

	a.logger.Debug().
		Str("plugin", entry.Name).
		Int("hooks", len(m.Hooks)).
		Int("steps", len(m.Steps)).
		Msg("Validated plugin manifest")
	return entry, updated, nil
}

// UnregisterPlugin removes a plugin from the registry. Its files are left
// alone.
func (a *App) UnregisterPlugin(name string) error {
	return a.Store.Unregister(name)
}

// SetPluginEnabled enables or disables a registered plugin.
func (a *App) SetPluginEnabled(name string, enabled bool) (types.PluginRegistryEntry, error) {
	return a.Store.SetEnabled(name, enabled)
}

// ListPlugins returns every registered plugin in registry order.
func (a *App) ListPlugins() ([]types.PluginRegistryEntry, error) {
	return a.Store.List()
}

// ValidatePlugin reads the manifest at path and returns every problem
// found. The error is non-nil only when the manifest cannot be read at
// all.
func (a *App) ValidatePlugin(path string) (string, []string, error) {
	m, err := manifest.Read(path)
	if err != nil {
		return path, nil, err
	}
	name := m.Name
	if name == "" {
		name = m.Root
	}
	return name, manifest.Problems(m), nil
}

// PluginInfo describes a registered plugin for display.
type PluginInfo struct {
	Entry    types.PluginRegistryEntry
	Manifest *manifest.Manifest
	// Readme is the plugin's README.md, empty when absent.
	Readme string
}

// InfoPlugin loads a registered plugin's manifest and README. The manifest
// is read without validation so broken plugins can still be inspected.
func (a *App) InfoPlugin(name string) (*PluginInfo, error) {
	entry, err := a.Store.Get(name)
	if err != nil {
		return nil, err
	}
	m, err := manifest.Read(entry.Path)
	if err != nil {
		return nil, err
	}

	info := &PluginInfo{Entry: entry, Manifest: m}
	data, err := os.ReadFile(filepath.Join(entry.Path, paths.ReadmeFile))
	switch {
	case err == nil:
		info.Readme = string(data)
	case !os.IsNotExist(err):
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read README of %s", name)
	}
	return info, nil
}

// EnabledPlugins loads and validates every enabled plugin, in registry
// order. Any invalid manifest is fatal.
func (a *App) EnabledPlugins() ([]Plugin, error) {
	entries, err := a.Store.Enabled()
	if err != nil {
		return nil, err
	}

	plugins := make([]Plugin, 0, len(entries))
	for _, e := range entries {
		m, err := manifest.Load(e.Path)
		if err != nil {
			if errors.IsFatal(err) {
				return nil, err
			}
			return nil, errors.Wrapf(err, errors.ErrPluginInvalid, "cannot load plugin %s", e.Name).
				WithDetail("path", e.Path)
		}
		if m.Name != e.Name {
			return nil, errors.Newf(errors.ErrPluginInvalid,
				"plugin at %s is now named %q but registered as %q; register it again", e.Path, m.Name, e.Name)
		}
		plugins = append(plugins, Plugin{Entry: e, Manifest: m})
	}
	return plugins, nil
}
