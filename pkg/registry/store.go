package registry

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/filesystem"
	"github.com/arthur-debert/devplug/pkg/logging"
	"github.com/arthur-debert/devplug/pkg/types"
	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	fileFormatVersion = 1
	lockTimeout       = 5 * time.Second
	lockRetry         = 50 * time.Millisecond
)

// registryFile is the on-disk layout of registry.yaml.
type registryFile struct {
	Version int                         `yaml:"version"`
	Plugins []types.PluginRegistryEntry `yaml:"plugins"`
}

func (f *registryFile) find(name string) int {
	for i, p := range f.Plugins {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Store is the persisted plugin registry.
type Store struct {
	path   string
	lock   *flock.Flock
	now    func() time.Time
	logger zerolog.Logger
}

// NewStore opens the registry file at path. The file is created on the
// first write.
func NewStore(path string) *Store {
	return &Store{
		path:   path,
		lock:   flock.New(path + ".lock"),
		now:    func() time.Time { return time.Now().UTC() },
		logger: logging.GetLogger("registry"),
	}
}

// Path returns the registry file location.
func (s *Store) Path() string { return s.path }

// RegisterOptions describes a plugin to register.
type RegisterOptions struct {
	Name    string
	Path    string
	Version string
	// Enabled is applied when set. New entries default to enabled; existing
	// entries keep their state.
	Enabled *bool
}

// Register inserts a plugin, or updates the entry with the same name. An
// update keeps the original registration time. A different entry that
// pointed at the same path (a renamed plugin) is replaced. The returned
// flag reports whether an existing entry was updated.
func (s *Store) Register(opts RegisterOptions) (types.PluginRegistryEntry, bool, error) {
	if opts.Name == "" || opts.Path == "" {
		return types.PluginRegistryEntry{}, false, errors.New(errors.ErrInvalidInput, "plugin name and path are required")
	}

	var (
		entry   types.PluginRegistryEntry
		updated bool
	)
	err := s.update(func(f *registryFile) error {
		now := s.now()

		kept := f.Plugins[:0]
		for _, p := range f.Plugins {
			if p.Path == opts.Path && p.Name != opts.Name {
				s.logger.Info().
					Str("old", p.Name).
					Str("new", opts.Name).
					Str("path", p.Path).
					Msg("Replacing plugin registered under a different name")
				continue
			}
			kept = append(kept, p)
		}
		f.Plugins = kept

		if i := f.find(opts.Name); i >= 0 {
			e := &f.Plugins[i]
			e.Path = opts.Path
			e.Version = opts.Version
			e.UpdatedAt = now
			if opts.Enabled != nil {
				e.Enabled = *opts.Enabled
			}
			entry, updated = *e, true
			return nil
		}

		entry = types.PluginRegistryEntry{
			Name:         opts.Name,
			Path:         opts.Path,
			Enabled:      opts.Enabled == nil || *opts.Enabled,
			Version:      opts.Version,
			RegisteredAt: now,
			UpdatedAt:    now,
		}
		f.Plugins = append(f.Plugins, entry)
		return nil
	})
	if err != nil {
		return types.PluginRegistryEntry{}, false, err
	}

	s.logger.Info().
		Str("plugin", entry.Name).
		Str("path", entry.Path).
		Bool("updated", updated).
		Msg("Plugin registered")
	return entry, updated, nil
}

// Unregister removes a plugin by name.
func (s *Store) Unregister(name string) error {
	return s.update(func(f *registryFile) error {
		i := f.find(name)
		if i < 0 {
			return notFound(name)
		}
		f.Plugins = append(f.Plugins[:i], f.Plugins[i+1:]...)
		return nil
	})
}

// SetEnabled toggles a plugin.
func (s *Store) SetEnabled(name string, enabled bool) (types.PluginRegistryEntry, error) {
	var entry types.PluginRegistryEntry
	err := s.update(func(f *registryFile) error {
		i := f.find(name)
		if i < 0 {
			return notFound(name)
		}
		f.Plugins[i].Enabled = enabled
		f.Plugins[i].UpdatedAt = s.now()
		entry = f.Plugins[i]
		return nil
	})
	return entry, err
}

// Get returns a plugin by name.
func (s *Store) Get(name string) (types.PluginRegistryEntry, error) {
	f, err := s.read()
	if err != nil {
		return types.PluginRegistryEntry{}, err
	}
	i := f.find(name)
	if i < 0 {
		return types.PluginRegistryEntry{}, notFound(name)
	}
	return f.Plugins[i], nil
}

// List returns every plugin ordered by registration time, then name. This
// is the order hooks run in.
func (s *Store) List() ([]types.PluginRegistryEntry, error) {
	f, err := s.read()
	if err != nil {
		return nil, err
	}
	plugins := append([]types.PluginRegistryEntry(nil), f.Plugins...)
	sort.SliceStable(plugins, func(i, j int) bool {
		a, b := plugins[i], plugins[j]
		if !a.RegisteredAt.Equal(b.RegisteredAt) {
			return a.RegisteredAt.Before(b.RegisteredAt)
		}
		return a.Name < b.Name
	})
	return plugins, nil
}

// Enabled returns the enabled plugins in List order.
func (s *Store) Enabled() ([]types.PluginRegistryEntry, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var enabled []types.PluginRegistryEntry
	for _, p := range all {
		if p.Enabled {
			enabled = append(enabled, p)
		}
	}
	return enabled, nil
}

func (s *Store) read() (*registryFile, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrDirCreate, "cannot create %s", filepath.Dir(s.path))
	}

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	locked, err := s.lock.TryRLockContext(ctx, lockRetry)
	if err != nil || !locked {
		if err == nil {
			err = ctx.Err()
		}
		return nil, errors.Wrapf(err, errors.ErrRegistryLock, "cannot lock %s", s.path)
	}
	defer func() { _ = s.lock.Unlock() }()

	return s.load()
}

// update runs fn on the current contents under an exclusive lock and
// persists the result atomically.
func (s *Store) update(fn func(f *registryFile) error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "cannot create %s", filepath.Dir(s.path))
	}

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	locked, err := s.lock.TryLockContext(ctx, lockRetry)
	if err != nil || !locked {
		if err == nil {
			err = ctx.Err()
		}
		return errors.Wrapf(err, errors.ErrRegistryLock, "cannot lock %s", s.path)
	}
	defer func() { _ = s.lock.Unlock() }()

	f, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		return err
	}
	return s.save(f)
}

func (s *Store) load() (*registryFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &registryFile{Version: fileFormatVersion}, nil
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", s.path)
	}

	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "registry file %s is corrupt", s.path)
	}
	if f.Version == 0 {
		f.Version = fileFormatVersion
	}
	return &f, nil
}

func (s *Store) save(f *registryFile) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return errors.Wrap(err, errors.ErrRegistryWrite, "cannot encode registry")
	}

	if err := filesystem.WriteFileAtomic(s.path, data, 0o600); err != nil {
		return errors.Wrapf(err, errors.ErrRegistryWrite, "cannot save registry %s", s.path)
	}
	return nil
}

func notFound(name string) error {
	return errors.Newf(errors.ErrPluginNotFound, "no plugin named %q is registered", name).
		WithDetail("plugin", name)
}
