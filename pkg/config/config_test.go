package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/paths"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPaths(t *testing.T) *paths.Paths {
	t.Helper()
	root := t.TempDir()
	t.Setenv(paths.EnvConfigDir, filepath.Join(root, "config"))
	t.Setenv(paths.EnvDataDir, filepath.Join(root, "data"))
	t.Setenv(paths.EnvStateDir, filepath.Join(root, "state"))
	t.Setenv("DEVPLUG_VERBOSE", "")
	t.Setenv(EnvCredentialDir, "")

	repo := filepath.Join(root, "repo")
	require.NoError(t, os.MkdirAll(repo, 0755))
	p, err := paths.New(repo)
	require.NoError(t, err)
	return p
}

func TestLoad_Defaults(t *testing.T) {
	p := setupPaths(t)

	cfg, err := Load(LoadOptions{Paths: p})
	require.NoError(t, err)

	assert.Equal(t, "docker", cfg.Container.Engine)
	assert.Equal(t, "dev", cfg.Container.Service)
	assert.Equal(t, "auto", cfg.General.Output)
	assert.False(t, cfg.General.FailFast)
	assert.Equal(t, 2, cfg.Mounts.MinDirectoryDepth)
	assert.Equal(t, []string{".gitkeep"}, cfg.Mounts.Skip)
	assert.Equal(t, 250*time.Millisecond, cfg.Mounts.WatchDebounce)
	assert.Equal(t, 165536, cfg.IDMap.Offset)
	assert.Equal(t, os.Getuid(), cfg.Runtime.HostUID)
	assert.Equal(t, p.RepoRoot(), cfg.Runtime.RepoRoot)
}

func TestLoad_Layering(t *testing.T) {
	p := setupPaths(t)

	require.NoError(t, os.MkdirAll(p.ConfigDir(), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(p.ConfigDir(), "config.toml"), []byte(`
[container]
engine = "podman"
service = "workspace"
`), 0644))

	require.NoError(t, os.WriteFile(p.RepoConfigPath(), []byte(`
[container]
service = "devbox"

[[mounts.extra]]
host = "~/.ssh"
container = "/root/.ssh"
`), 0644))

	t.Setenv("DEVPLUG_GENERAL_FAIL_FAST", "true")
	t.Setenv("DEVPLUG_HOST_UID", "1234")
	t.Setenv("DEVPLUG_MOUNTS_SKIP", ".gitkeep,.DS_Store")

	cfg, err := Load(LoadOptions{Paths: p})
	require.NoError(t, err)

	assert.Equal(t, "podman", cfg.Container.Engine, "user config applies")
	assert.Equal(t, "devbox", cfg.Container.Service, "repo config beats user config")
	assert.True(t, cfg.General.FailFast, "env beats defaults")
	assert.Equal(t, 1234, cfg.Runtime.HostUID)
	assert.Equal(t, []string{".gitkeep", ".DS_Store"}, cfg.Mounts.Skip)

	require.Len(t, cfg.Mounts.Extra, 1)
	assert.Equal(t, "ro", cfg.Mounts.Extra[0].Mode)
	assert.False(t, strings.HasPrefix(cfg.Mounts.Extra[0].Host, "~"))
}

func TestLoad_ExplicitYAMLFile(t *testing.T) {
	p := setupPaths(t)

	file := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(file, []byte("container:\n  shell: /bin/zsh\n"), 0644))

	cfg, err := Load(LoadOptions{Paths: p, ConfigFile: file})
	require.NoError(t, err)
	assert.Equal(t, "/bin/zsh", cfg.Container.Shell)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	p := setupPaths(t)

	_, err := Load(LoadOptions{Paths: p, ConfigFile: "/nonexistent/devplug.toml"})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigLoad))
}

func TestLoad_Flags(t *testing.T) {
	p := setupPaths(t)
	t.Setenv("DEVPLUG_GENERAL_OUTPUT", "text")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Bool("fail-fast", false, "")
	flags.Bool("dry-run", false, "")
	flags.String("output", "auto", "")
	flags.CountP("verbose", "v", "")
	require.NoError(t, flags.Parse([]string{"--dry-run", "-vv"}))

	cfg, err := Load(LoadOptions{Paths: p, Flags: flags, Verbosity: 2})
	require.NoError(t, err)

	assert.True(t, cfg.General.DryRun)
	assert.False(t, cfg.General.FailFast)
	assert.Equal(t, "text", cfg.General.Output, "unchanged flags keep lower layers")
	assert.Equal(t, 2, cfg.Runtime.Verbosity)
}

func TestLoad_VerboseEnv(t *testing.T) {
	p := setupPaths(t)
	t.Setenv("DEVPLUG_VERBOSE", "3")

	cfg, err := Load(LoadOptions{Paths: p, Verbosity: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Runtime.Verbosity)
}

func TestLoad_CredentialDirFallback(t *testing.T) {
	p := setupPaths(t)
	t.Setenv(EnvCredentialDir, "/opt/creds")

	cfg, err := Load(LoadOptions{Paths: p})
	require.NoError(t, err)
	assert.Equal(t, "/opt/creds", cfg.Credentials.Dir)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad_output", map[string]string{"DEVPLUG_GENERAL_OUTPUT": "xml"}},
		{"empty_engine", map[string]string{"DEVPLUG_CONTAINER_ENGINE": ""}},
		{"zero_depth", map[string]string{"DEVPLUG_MOUNTS_MIN_DIRECTORY_DEPTH": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := setupPaths(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(LoadOptions{Paths: p})
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrConfigValid))
			assert.True(t, errors.IsFatal(err))
		})
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	p := setupPaths(t)
	require.NoError(t, os.WriteFile(p.RepoConfigPath(), []byte("[container\nengine = "), 0644))

	_, err := Load(LoadOptions{Paths: p})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigParse))
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"DEVPLUG_CONTAINER_ENGINE", "container.engine"},
		{"DEVPLUG_MOUNTS_MIN_DIRECTORY_DEPTH", "mounts.min_directory_depth"},
		{"DEVPLUG_PLUGIN_ROOT", "runtime.plugin_root"},
		{"DEVPLUG_HOST_UID", "runtime.host_uid"},
		{"DEVPLUG_VERBOSE", ""},
		{"DEVPLUG_SHIFTED_GID", ""},
		{"DEVPLUG_DATA_DIR", ""},
		{"DEVPLUG_GENERAL", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, envKey(tt.in))
		})
	}
}

func TestConfigHelpers(t *testing.T) {
	cfg := Default()
	cfg.Runtime.HostUID = 1000
	assert.Equal(t, 1000, cfg.ShiftGID())
	cfg.IDMap.ContainerGID = 0
	assert.Equal(t, 0, cfg.ShiftGID())

	assert.Equal(t, "", cfg.Home.SecondaryHomeDir())
	cfg.Home.SecondaryUser = "dev"
	assert.Equal(t, "/home/dev", cfg.Home.SecondaryHomeDir())
	cfg.Home.SecondaryHome = "/work/dev"
	assert.Equal(t, "/work/dev", cfg.Home.SecondaryHomeDir())
}

func TestGenerateConfigContent(t *testing.T) {
	content := GenerateConfigContent()
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "[") {
			continue
		}
		assert.True(t, strings.HasPrefix(trimmed, "#"), "line not commented: %q", line)
	}
	assert.Contains(t, content, "[mounts]")
	assert.Contains(t, content, `# engine = "docker"`)
}

func TestMarshalEffective(t *testing.T) {
	out, err := MarshalEffective(Default())
	require.NoError(t, err)
	assert.Contains(t, out, "[container]")
	assert.Contains(t, out, "engine = 'docker'")
}
