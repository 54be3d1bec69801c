package hooks

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/devplug/pkg/executor"
	"github.com/arthur-debert/devplug/pkg/testutil"
	"github.com/arthur-debert/devplug/pkg/types"
)

func pluginOf(tp *testutil.TestPlugin) Plugin {
	return Plugin{Name: tp.Name, Root: tp.Dir}
}

func TestRun_OrderAndEnvironment(t *testing.T) {
	log := filepath.Join(t.TempDir(), "log")

	first := testutil.SetupTestPlugin(t, "first")
	first.AddHook(t, "post-up", `echo "first $DEVPLUG_PHASE $DEVPLUG_HOST_UID $DEVPLUG_SHIFTED_GID $DEVPLUG_VERBOSE $TOKEN" >> "$LOG"
[ "$DEVPLUG_PLUGIN_ROOT" = "$PWD" ] && echo "first in root" >> "$LOG"
echo "repo $DEVPLUG_REPO_ROOT" >> "$LOG"
`)
	none := testutil.SetupTestPlugin(t, "nohooks")
	second := testutil.SetupTestPlugin(t, "second")
	second.AddHook(t, "post-up", `echo "second" >> "$LOG"`)

	var out bytes.Buffer
	r := NewRunner(executor.NewExecRunner(), Options{Stdout: &out})
	env := Env{
		RepoRoot:   "/repo",
		HostUID:    1000,
		ShiftedGID: 101000,
		Verbosity:  2,
		Extra:      []string{"TOKEN=abc", "LOG=" + log},
	}

	results := r.Run(context.Background(), types.PhasePostUp, []Plugin{pluginOf(first), pluginOf(none), pluginOf(second)}, env)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].Plugin)
	assert.Equal(t, types.StatusSucceeded, results[0].Status)
	assert.Equal(t, Category, results[0].Category)
	assert.Equal(t, "second", results[1].Plugin)

	data, err := os.ReadFile(log)
	require.NoError(t, err)
	assert.Equal(t, "first post-up 1000 101000 2 abc\nfirst in root\nrepo /repo\nsecond\n", string(data))
}

func TestRun_FailureContinues(t *testing.T) {
	log := filepath.Join(t.TempDir(), "log")

	bad := testutil.SetupTestPlugin(t, "bad")
	bad.AddHook(t, "pre-up", "echo boom >&2\nexit 7\n")
	good := testutil.SetupTestPlugin(t, "good")
	good.AddHook(t, "pre-up", `echo ran >> "$LOG"`)

	var stderr bytes.Buffer
	r := NewRunner(executor.NewExecRunner(), Options{Stderr: &stderr})
	results := r.Run(context.Background(), types.PhasePreUp, []Plugin{pluginOf(bad), pluginOf(good)}, Env{ShiftedGID: -1, Extra: []string{"LOG=" + log}})

	require.Len(t, results, 2)
	assert.Equal(t, types.StatusFailed, results[0].Status)
	assert.Equal(t, "exit status 7", results[0].Message)
	assert.Contains(t, results[0].Error, "HOOK_FAILED")
	assert.Equal(t, types.StatusSucceeded, results[1].Status)
	assert.Contains(t, stderr.String(), "boom")

	data, err := os.ReadFile(log)
	require.NoError(t, err)
	assert.Equal(t, "ran\n", string(data))
}

func TestRun_FailFast(t *testing.T) {
	runner := testutil.NewFakeRunner()

	bad := testutil.SetupTestPlugin(t, "bad")
	badHook := bad.AddHook(t, "pre-up", "exit 1\n")
	good := testutil.SetupTestPlugin(t, "good")
	good.AddHook(t, "pre-up", "exit 0\n")
	runner.On("bash "+badHook, 1, "")

	r := NewRunner(runner, Options{FailFast: true})
	results := r.Run(context.Background(), types.PhasePreUp, []Plugin{pluginOf(bad), pluginOf(good)}, Env{ShiftedGID: -1})

	require.Len(t, results, 2)
	assert.Equal(t, types.StatusFailed, results[0].Status)
	assert.Equal(t, types.StatusSkipped, results[1].Status)
	assert.Len(t, runner.Calls(), 1)
}

func TestRun_DryRun(t *testing.T) {
	runner := testutil.NewFakeRunner()
	tp := testutil.SetupTestPlugin(t, "p")
	tp.AddHook(t, "env-setup", "exit 1\n")

	r := NewRunner(runner, Options{DryRun: true})
	results := r.Run(context.Background(), types.PhaseEnvSetup, []Plugin{pluginOf(tp)}, Env{ShiftedGID: -1})

	require.Len(t, results, 1)
	assert.Equal(t, types.StatusWouldInstall, results[0].Status)
	assert.Empty(t, runner.Calls())
}

func TestEnviron(t *testing.T) {
	env := Env{RepoRoot: "/repo", HostUID: 501, ShiftedGID: -1, Verbosity: 0}
	got := env.Environ(Plugin{Name: "p", Root: "/plugins/p"}, types.PhaseContainerStartup)

	joined := strings.Join(got, "\n")
	assert.Contains(t, joined, "DEVPLUG_PLUGIN_ROOT=/plugins/p")
	assert.Contains(t, joined, "DEVPLUG_REPO_ROOT=/repo")
	assert.Contains(t, joined, "DEVPLUG_HOST_UID=501")
	assert.Contains(t, joined, "DEVPLUG_VERBOSE=0")
	assert.Contains(t, joined, "DEVPLUG_PHASE=container-startup")
	assert.NotContains(t, joined, "DEVPLUG_SHIFTED_GID")
}
