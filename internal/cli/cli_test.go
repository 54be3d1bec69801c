package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/executor"
	"github.com/arthur-debert/devplug/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliEnv struct {
	*testutil.TestEnv
	runner *testutil.FakeRunner
}

func setupCLI(t *testing.T) *cliEnv {
	t.Helper()
	env := testutil.SetupEnv(t)
	t.Setenv("DEVPLUG_IDMAP_SUBGID_FILE", filepath.Join(env.Root, "subgid"))
	t.Setenv("DEVPLUG_MOUNTS_SYMLINK_SCRIPT", filepath.Join(env.Root, "symlinks.sh"))
	return &cliEnv{TestEnv: env, runner: testutil.NewFakeRunner()}
}

// run executes one command line on a fresh command tree, the way separate
// process invocations would.
func (c *cliEnv) run(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&globals{
		runner:      c.runner,
		interactive: func() bool { return false },
	})
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

const failingManifest = `name: tools
version: 1.0.0
steps:
  - name: ok
    kind: shell
    params:
      command: install-ok
    probe:
      check: has-ok
  - name: broken
    kind: shell
    params:
      command: install-broken
    probe:
      check: has-broken
`

func TestRegisterAndList(t *testing.T) {
	c := setupCLI(t)
	tp := testutil.SetupTestPlugin(t, "tools")

	out, _, err := c.run("register-plugin", tp.Dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Registered plugin tools 1.0.0")

	out, _, err = c.run("register-plugin", tp.Dir, "--disabled")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated plugin tools")

	out, _, err = c.run("list-plugins")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "tools")
	assert.Contains(t, out, "disabled")

	_, _, err = c.run("enable-plugin", "tools")
	require.NoError(t, err)
	out, _, err = c.run("ls", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"enabled": true`)
}

func TestRegister_UsesPluginRootFlag(t *testing.T) {
	c := setupCLI(t)
	tp := testutil.SetupTestPlugin(t, "tools")

	out, _, err := c.run("register-plugin", "--plugin-root", tp.Dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Registered plugin tools")
}

func TestValidatePlugin(t *testing.T) {
	c := setupCLI(t)
	tp := testutil.SetupTestPlugin(t, "tools")

	out, _, err := c.run("validate-plugin", tp.Dir)
	require.NoError(t, err)
	assert.Contains(t, out, "valid")

	tp.WriteManifest(t, "name: tools\nversion: 1.0.0\nsteps:\n  - name: a\n    kind: nope\n    depends_on: [ghost]\n")
	out, _, err = c.run("validate-plugin", tp.Dir)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigValid))
	assert.Contains(t, out, "problem(s)")
	assert.Contains(t, out, "nope")
	assert.Contains(t, out, "ghost")
}

func TestUnregister(t *testing.T) {
	c := setupCLI(t)
	tp := testutil.SetupTestPlugin(t, "tools")
	_, _, err := c.run("register-plugin", tp.Dir)
	require.NoError(t, err)

	_, _, err = c.run("unregister-plugin", "tools")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))

	out, _, err := c.run("unregister-plugin", "tools", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Unregistered plugin tools")

	out, _, err = c.run("list-plugins")
	require.NoError(t, err)
	assert.Contains(t, out, "No plugins registered.")
}

func TestInfoPlugin(t *testing.T) {
	c := setupCLI(t)
	tp := testutil.SetupTestPlugin(t, "tools")
	tp.AddFile(t, "README.md", "# Tools\n\nUseful things.\n", 0644)
	_, _, err := c.run("register-plugin", tp.Dir)
	require.NoError(t, err)

	out, _, err := c.run("info-plugin", "tools")
	require.NoError(t, err)
	assert.Contains(t, out, "tools 1.0.0 (enabled)")
	assert.Contains(t, out, "Useful things.")

	_, _, err = c.run("info-plugin", "ghost")
	assert.True(t, errors.IsErrorCode(err, errors.ErrPluginNotFound))
}

func TestInstallAndStatus(t *testing.T) {
	c := setupCLI(t)

	out, _, err := c.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "No run recorded yet.")

	tp := testutil.SetupTestPlugin(t, "tools")
	tp.WriteManifest(t, failingManifest)
	_, _, err = c.run("register-plugin", tp.Dir)
	require.NoError(t, err)

	c.runner.On("bash -c has-", 1, "")
	c.runner.On("bash -c install-ok", 0, "")
	c.runner.On("bash -c install-broken", 2, "")

	out, _, err = c.run("install")
	require.Error(t, err)
	assert.Contains(t, out, "CATEGORY")
	assert.Contains(t, out, "FAILED tools/broken")

	out, _, err = c.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "CATEGORY")
	assert.Contains(t, out, "tools")
}

func TestInstall_DryRunInstallsNothing(t *testing.T) {
	c := setupCLI(t)
	tp := testutil.SetupTestPlugin(t, "tools")
	tp.WriteManifest(t, failingManifest)
	_, _, err := c.run("register-plugin", tp.Dir)
	require.NoError(t, err)
	c.runner.On("bash -c has-", 1, "")

	_, _, err = c.run("install", "--dry-run")
	require.NoError(t, err)
	assert.Empty(t, c.runner.CallsMatching("bash -c install-"))
	assert.NotEmpty(t, c.runner.CallsMatching("bash -c has-ok"))
}

func TestHooks(t *testing.T) {
	c := setupCLI(t)

	_, _, err := c.run("hooks", "lunch")
	require.Error(t, err)

	tp := testutil.SetupTestPlugin(t, "tools")
	tp.AddHook(t, "pre-up", "echo hi\n")
	_, _, err = c.run("register-plugin", tp.Dir)
	require.NoError(t, err)

	_, _, err = c.run("hooks", "pre-up")
	require.NoError(t, err)
	calls := c.runner.CallsMatching("bash")
	require.Len(t, calls, 1)
	assert.Equal(t, "pre-up", testutil.EnvValue(calls[0], "DEVPLUG_PHASE"))
}

func TestEnv(t *testing.T) {
	c := setupCLI(t)
	credDir := filepath.Join(c.Root, "creds")
	require.NoError(t, os.MkdirAll(credDir, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(credDir, "token"), []byte("s3cret\n"), 0600))
	t.Setenv("CREDENTIAL_SCRIPT_DIR", credDir)

	tp := testutil.SetupTestPlugin(t, "tools")
	tp.WriteManifest(t, "name: tools\nversion: 1.0.0\ncredentials:\n  - env: API_TOKEN\n    file: token\n  - env: MISSING\n    file: nope\n")
	_, _, err := c.run("register-plugin", tp.Dir)
	require.NoError(t, err)

	out, errOut, err := c.run("env")
	require.NoError(t, err)
	assert.Equal(t, "export API_TOKEN='s3cret'\n", out)
	assert.Contains(t, errOut, "devplug: warning:")
}

func TestUp_DryRun(t *testing.T) {
	c := setupCLI(t)

	out, _, err := c.run("up", "--dry-run", "-d")
	require.NoError(t, err)
	assert.Contains(t, out, "would run: docker compose")
	assert.Empty(t, c.runner.Calls())
}

func TestUp_MissingEngine(t *testing.T) {
	c := setupCLI(t)
	c.runner.Missing("docker")

	_, _, err := c.run("up", "-d")
	require.Error(t, err)
}

func TestGenConfig(t *testing.T) {
	c := setupCLI(t)

	out, _, err := c.run("genconfig")
	require.NoError(t, err)
	assert.Contains(t, out, "[container]")
	assert.Contains(t, out, `# engine = "docker"`)

	out, _, err = c.run("genconfig", "--effective")
	require.NoError(t, err)
	assert.Contains(t, out, "engine = 'docker'")

	_, _, err = c.run("genconfig", "--write")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(c.RepoRoot, ".devplug.toml"))

	_, _, err = c.run("genconfig", "--write")
	assert.True(t, errors.IsErrorCode(err, errors.ErrAlreadyExists))
}

func TestConfigLayering(t *testing.T) {
	c := setupCLI(t)
	require.NoError(t, os.WriteFile(filepath.Join(c.RepoRoot, ".devplug.toml"), []byte("[container]\nengine = \"podman\"\n"), 0644))

	out, _, err := c.run("down", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "would run: podman compose")

	t.Setenv("DEVPLUG_CONTAINER_ENGINE", "nerdctl")
	out, _, err = c.run("down", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "would run: nerdctl compose")
}

func TestVersion(t *testing.T) {
	c := setupCLI(t)
	out, _, err := c.run("version")
	require.NoError(t, err)
	assert.Contains(t, out, "devplug version")
}

func TestBuildHelp_PointsUserSetupAtDockerfile(t *testing.T) {
	c := setupCLI(t)
	out, _, err := c.run("build", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "devplug hooks user-setup")
	assert.Empty(t, c.runner.Calls())
}

func TestHelpTopics(t *testing.T) {
	c := setupCLI(t)

	out, _, err := c.run("help", "topics")
	require.NoError(t, err)
	assert.Contains(t, out, "manifest")
	assert.Contains(t, out, "--dry-run")

	out, _, err = c.run("help", "manifest")
	require.NoError(t, err)
	assert.Contains(t, out, "plugin.yaml")

	out, _, err = c.run("help", "mounts")
	require.NoError(t, err)
	assert.Contains(t, out, "--watch")
}

func TestRunnerSeesEngineCommand(t *testing.T) {
	c := setupCLI(t)
	c.runner.OnFunc("docker compose", func(executor.Command) executor.Result { return executor.Result{} })

	_, _, err := c.run("down")
	require.NoError(t, err)
	lines := c.runner.CommandLines()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "docker compose -f "+filepath.Join(c.RepoRoot, "docker-compose.yml"))
	assert.Contains(t, lines[0], " down")
}
