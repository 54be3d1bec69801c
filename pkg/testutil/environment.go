package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/devplug/pkg/paths"
	"github.com/stretchr/testify/require"
)

// TestEnv is an isolated devplug environment rooted in a temp directory.
type TestEnv struct {
	Root     string
	RepoRoot string
	HomeDir  string
	Paths    *paths.Paths
}

// SetupEnv points HOME, the devplug XDG overrides and the repo root at a
// fresh temp directory and clears inherited DEVPLUG_* variables.
func SetupEnv(t *testing.T) *TestEnv {
	t.Helper()

	root := t.TempDir()
	env := &TestEnv{
		Root:     root,
		RepoRoot: filepath.Join(root, "repo"),
		HomeDir:  filepath.Join(root, "home"),
	}
	require.NoError(t, os.MkdirAll(env.RepoRoot, 0755))
	require.NoError(t, os.MkdirAll(env.HomeDir, 0755))

	t.Setenv("HOME", env.HomeDir)
	t.Setenv("XDG_STATE_HOME", filepath.Join(root, "state"))
	t.Setenv(paths.EnvDataDir, filepath.Join(root, "data"))
	t.Setenv(paths.EnvConfigDir, filepath.Join(root, "config"))
	t.Setenv(paths.EnvStateDir, filepath.Join(root, "state", "devplug"))
	t.Setenv(paths.EnvRepoRoot, env.RepoRoot)
	for _, key := range []string{paths.EnvPluginRoot, paths.EnvHostUID, paths.EnvShiftedGID, paths.EnvPhase, "DEVPLUG_VERBOSE", "CREDENTIAL_SCRIPT_DIR"} {
		t.Setenv(key, "")
	}

	p, err := paths.New(env.RepoRoot)
	require.NoError(t, err)
	env.Paths = p
	return env
}
