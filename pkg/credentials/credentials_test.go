package credentials

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/devplug/pkg/executor"
	"github.com/arthur-debert/devplug/pkg/types"
)

func writeCred(t *testing.T, dir, name, content string, mode os.FileMode) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	require.NoError(t, os.Chmod(path, mode))
}

func TestLoad_Modes(t *testing.T) {
	dir := t.TempDir()
	writeCred(t, dir, "token.txt", "  secret-token\n\n", 0600)
	writeCred(t, dir, "gitlab-personal-access-token.sh", "#!/bin/bash\necho 'glpat-abc123'\n", 0755)
	writeCred(t, dir, "gitlab-admin.sh", "#!/bin/bash\n# GitLab admin credentials\necho noise\nexport GITLAB_ADMIN_USER=admin\nexport GITLAB_ADMIN_PASS=''\n", 0755)
	writeCred(t, dir, "ca.pem", "-----BEGIN CERTIFICATE-----\n", 0644)

	bindings := []types.CredentialBinding{
		{Env: "API_TOKEN", File: "token.txt"},
		{Env: "GITLAB_PERSONAL_ACCESS_TOKEN", File: "gitlab-personal-access-token.sh", Mode: types.CredentialExec},
		{
			File:     "gitlab-admin.sh",
			Mode:     types.CredentialSource,
			Vars:     []string{"GITLAB_ADMIN_USER", "GITLAB_ADMIN_PASS", "GITLAB_ADMIN_EMAIL"},
			Defaults: map[string]string{"GITLAB_ADMIN_PASS": "changeme", "GITLAB_ADMIN_USER": "root"},
		},
		{Env: "CA_MARKER", File: "token.txt", CertBundle: "ca.pem"},
	}

	loader := NewLoader(dir, []string{"SSL_CERT_FILE", "NODE_EXTRA_CA_CERTS"}, executor.NewExecRunner())
	res, err := loader.Load(context.Background(), bindings)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	tests := map[string]string{
		"API_TOKEN":                    "secret-token",
		"GITLAB_PERSONAL_ACCESS_TOKEN": "glpat-abc123",
		"GITLAB_ADMIN_USER":            "admin",
		"GITLAB_ADMIN_PASS":            "changeme",
		"SSL_CERT_FILE":                filepath.Join(dir, "ca.pem"),
		"NODE_EXTRA_CA_CERTS":          filepath.Join(dir, "ca.pem"),
	}
	for key, want := range tests {
		got, ok := res.Get(key)
		assert.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}

	// Unset and without a default: not exported at all.
	_, ok := res.Get("GITLAB_ADMIN_EMAIL")
	assert.False(t, ok)
}

func TestLoad_MissingFilesUseDefaults(t *testing.T) {
	dir := t.TempDir()
	bindings := []types.CredentialBinding{
		{Env: "ZOTERO_KEY", File: "zotero.txt", Default: "none"},
		{Env: "NO_DEFAULT", File: "absent.txt"},
		{File: "zotero-sync.sh", Mode: types.CredentialSource, Vars: []string{"ZOTERO_USER"}, Defaults: map[string]string{"ZOTERO_USER": "anon"}},
		{Env: "X", File: "x.txt", CertBundle: "missing.pem"},
	}

	loader := NewLoader(dir, []string{"SSL_CERT_FILE"}, executor.NewExecRunner())
	res, err := loader.Load(context.Background(), bindings)
	require.NoError(t, err)

	v, ok := res.Get("ZOTERO_KEY")
	assert.True(t, ok)
	assert.Equal(t, "none", v)
	v, _ = res.Get("ZOTERO_USER")
	assert.Equal(t, "anon", v)
	_, ok = res.Get("NO_DEFAULT")
	assert.False(t, ok)
	_, ok = res.Get("SSL_CERT_FILE")
	assert.False(t, ok)

	assert.Len(t, res.Warnings, 5)
}

func TestLoad_ExecFailure(t *testing.T) {
	dir := t.TempDir()
	writeCred(t, dir, "broken.sh", "#!/bin/bash\necho oops >&2\nexit 3\n", 0755)

	loader := NewLoader(dir, nil, executor.NewExecRunner())
	res, err := loader.Load(context.Background(), []types.CredentialBinding{
		{Env: "TOKEN", File: "broken.sh", Mode: types.CredentialExec, Default: "fallback"},
	})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "broken.sh")
	v, _ := res.Get("TOKEN")
	assert.Equal(t, "fallback", v)
}

func TestLoad_NoDirectory(t *testing.T) {
	loader := NewLoader("", nil, executor.NewExecRunner())
	res, err := loader.Load(context.Background(), []types.CredentialBinding{{Env: "A", File: "a.txt", Default: "d"}})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "no credentials directory")
	v, _ := res.Get("A")
	assert.Equal(t, "d", v)
}

func TestLoad_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loader := NewLoader(t.TempDir(), nil, executor.NewExecRunner())
	_, err := loader.Load(ctx, []types.CredentialBinding{{Env: "A", File: "a.txt"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoad_LaterBindingWins(t *testing.T) {
	dir := t.TempDir()
	writeCred(t, dir, "a.txt", "first", 0600)
	writeCred(t, dir, "b.txt", "second", 0600)

	loader := NewLoader(dir, nil, executor.NewExecRunner())
	res, err := loader.Load(context.Background(), []types.CredentialBinding{
		{Env: "TOKEN", File: "a.txt"},
		{Env: "TOKEN", File: "b.txt"},
	})
	require.NoError(t, err)
	require.Len(t, res.Exports, 1)
	assert.Equal(t, "second", res.Exports[0].Value)
	assert.Equal(t, []string{"TOKEN=second"}, res.Environ())
}

func TestFormatExports(t *testing.T) {
	out := FormatExports([]Export{
		{Key: "ZED", Value: "z"},
		{Key: "PASS", Value: "it's $secret"},
		{Key: "EMPTY", Value: ""},
	})

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{
		"export EMPTY=''",
		`export PASS='it'\''s $secret'`,
		"export ZED='z'",
	}, lines)
}
