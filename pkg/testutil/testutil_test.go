package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeRunner(t *testing.T) {
	f := NewFakeRunner().
		On("dpkg-query", 1, "").
		On("dpkg-query -W -f=${Status} jq", 0, "install ok installed").
		Missing("npm")

	ctx := context.Background()

	res, err := f.Run(ctx, executor.Command{Name: "dpkg-query", Args: []string{"-W", "-f=${Status}", "jq"}})
	require.NoError(t, err)
	assert.Equal(t, "install ok installed", res.Stdout)

	_, err = f.Run(ctx, executor.Command{Name: "dpkg-query", Args: []string{"-W", "-f=${Status}", "ripgrep"}})
	require.Error(t, err)
	assert.Equal(t, 1, executor.ExitCode(err))

	_, err = f.Run(ctx, executor.Command{Name: "true"})
	require.NoError(t, err)

	_, err = f.LookPath("npm")
	assert.True(t, errors.IsErrorCode(err, errors.ErrMissingPrerequisite))
	_, err = f.LookPath("pip")
	assert.NoError(t, err)

	assert.Len(t, f.Calls(), 3)
	assert.Len(t, f.CallsMatching("dpkg-query"), 2)
	f.Reset()
	assert.Empty(t, f.CommandLines())
}

func TestTestPlugin(t *testing.T) {
	tp := SetupTestPlugin(t, "tools")
	path := tp.AddMountedFile(t, "root/.bashrc", "x", 0640)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), info.Mode().Perm())
	assert.FileExists(t, tp.Dir+"/plugin.yaml")
}

func TestEnvValue(t *testing.T) {
	cmd := executor.Command{Env: []string{"A=1", "B=two=2"}}
	assert.Equal(t, "1", EnvValue(cmd, "A"))
	assert.Equal(t, "two=2", EnvValue(cmd, "B"))
	assert.Equal(t, "", EnvValue(cmd, "C"))
}
