package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/devplug/pkg/paths"
	"github.com/stretchr/testify/require"
)

// TestPlugin is a plugin directory under a temp dir.
type TestPlugin struct {
	Name string
	Dir  string
}

// SetupTestPlugin creates a plugin directory with a minimal manifest.
func SetupTestPlugin(t *testing.T, name string) *TestPlugin {
	t.Helper()

	dir := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(dir, 0755))

	tp := &TestPlugin{Name: name, Dir: dir}
	tp.WriteManifest(t, "name: "+name+"\nversion: 1.0.0\n")
	return tp
}

// WriteManifest replaces plugin.yaml.
func (tp *TestPlugin) WriteManifest(t *testing.T, content string) {
	t.Helper()
	tp.AddFile(t, paths.ManifestFile, content, 0644)
}

// AddFile writes a file relative to the plugin root with the given mode.
func (tp *TestPlugin) AddFile(t *testing.T, rel, content string, mode os.FileMode) string {
	t.Helper()

	path := filepath.Join(tp.Dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	// WriteFile honours the umask; force the exact bits.
	require.NoError(t, os.Chmod(path, mode))
	return path
}

// AddHook writes hooks/<phase>.sh.
func (tp *TestPlugin) AddHook(t *testing.T, phase, script string) string {
	t.Helper()
	return tp.AddFile(t, filepath.Join(paths.HooksDir, phase+".sh"), script, 0755)
}

// AddMountedFile writes a file under mounted-files/.
func (tp *TestPlugin) AddMountedFile(t *testing.T, rel, content string, mode os.FileMode) string {
	t.Helper()
	return tp.AddFile(t, filepath.Join(paths.MountedFilesDir, rel), content, mode)
}

// AddMountedSymlink creates a symlink under mounted-files/ pointing at target.
func (tp *TestPlugin) AddMountedSymlink(t *testing.T, rel, target string) string {
	t.Helper()

	path := filepath.Join(tp.Dir, paths.MountedFilesDir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.Symlink(target, path))
	return path
}

// MountRoot is the plugin's mounted-files directory.
func (tp *TestPlugin) MountRoot() string {
	return paths.MountRoot(tp.Dir)
}
