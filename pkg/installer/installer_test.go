package installer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/executor"
	"github.com/arthur-debert/devplug/pkg/testutil"
	"github.com/arthur-debert/devplug/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aptStep(name string, pkgs ...string) types.InstallStep {
	list := make([]interface{}, 0, len(pkgs))
	for _, p := range pkgs {
		list = append(list, p)
	}
	return types.InstallStep{
		Name:     name,
		Plugin:   "tools",
		Category: "system",
		Kind:     "apt",
		Enabled:  true,
		Params:   map[string]interface{}{"packages": list},
	}
}

// fakeApt scripts dpkg-query and apt-get against an in-memory package set.
func fakeApt(installed map[string]bool) *testutil.FakeRunner {
	return testutil.NewFakeRunner().
		OnFunc("dpkg-query", func(cmd executor.Command) executor.Result {
			pkg := cmd.Args[len(cmd.Args)-1]
			if installed[pkg] {
				return executor.Result{Stdout: "install ok installed"}
			}
			return executor.Result{ExitCode: 1, Stderr: "no packages found matching " + pkg}
		}).
		OnFunc("apt-get install", func(cmd executor.Command) executor.Result {
			for _, pkg := range cmd.Args[3:] {
				installed[pkg] = true
			}
			return executor.Result{}
		})
}

func statuses(results []types.StepResult) map[string]types.StepStatus {
	out := map[string]types.StepStatus{}
	for _, r := range results {
		out[r.Name] = r.Status
	}
	return out
}

func TestRunner_Idempotent(t *testing.T) {
	installed := map[string]bool{"git": true}
	fake := fakeApt(installed)
	steps := []types.InstallStep{
		aptStep("base", "git", "curl"),
		aptStep("search", "ripgrep"),
	}

	runner := NewRunner(fake, Options{})

	first, err := runner.Run(context.Background(), steps)
	require.NoError(t, err)
	assert.Equal(t, map[string]types.StepStatus{
		"base":   types.StatusInstalled,
		"search": types.StatusInstalled,
	}, statuses(first))

	fake.Reset()
	second, err := runner.Run(context.Background(), steps)
	require.NoError(t, err)
	assert.Equal(t, map[string]types.StepStatus{
		"base":   types.StatusAlreadyPresent,
		"search": types.StatusAlreadyPresent,
	}, statuses(second))
	assert.Empty(t, fake.CallsMatching("apt-get"), "second run must not install anything")
}

func TestRunner_DisabledStepNeverInvoked(t *testing.T) {
	fake := fakeApt(map[string]bool{})
	disabled := aptStep("heavy", "texlive-full")
	disabled.Enabled = false

	results, err := NewRunner(fake, Options{}).Run(context.Background(), []types.InstallStep{
		disabled,
		aptStep("small", "jq"),
	})
	require.NoError(t, err)

	assert.Equal(t, types.StatusDisabled, statuses(results)["heavy"])
	for _, line := range fake.CommandLines() {
		assert.NotContains(t, line, "texlive-full")
	}
	assert.NotEmpty(t, fake.CallsMatching("apt-get install -y --no-install-recommends jq"))
}

func TestRunner_FailurePolicy(t *testing.T) {
	newFake := func() *testutil.FakeRunner {
		return fakeApt(map[string]bool{}).On("apt-get install -y --no-install-recommends broken", 100, "")
	}
	steps := []types.InstallStep{
		aptStep("broken", "broken"),
		aptStep("after", "jq"),
	}

	t.Run("collects_failures", func(t *testing.T) {
		results, err := NewRunner(newFake(), Options{}).Run(context.Background(), steps)
		require.NoError(t, err)
		st := statuses(results)
		assert.Equal(t, types.StatusFailed, st["broken"])
		assert.Equal(t, types.StatusInstalled, st["after"])
		assert.True(t, HasFailures(results))
		assert.Contains(t, results[0].Error, "INSTALL_FAILED")
	})

	t.Run("fail_fast", func(t *testing.T) {
		fake := newFake()
		results, err := NewRunner(fake, Options{FailFast: true}).Run(context.Background(), steps)
		require.NoError(t, err)
		st := statuses(results)
		assert.Equal(t, types.StatusFailed, st["broken"])
		assert.Equal(t, types.StatusSkipped, st["after"])
		assert.Empty(t, fake.CallsMatching("dpkg-query -W -f=${Status} jq"))
	})
}

func TestRunner_DependencySkipping(t *testing.T) {
	fake := fakeApt(map[string]bool{}).On("apt-get install -y --no-install-recommends nodejs", 1, "")

	node := aptStep("node", "nodejs")
	tools := types.InstallStep{
		Name: "tools", Plugin: "tools", Category: "node", Kind: "npm", Enabled: true,
		DependsOn: []string{"node"},
		Params:    map[string]interface{}{"packages": "typescript"},
	}
	off := aptStep("off", "x")
	off.Enabled = false
	afterOff := aptStep("after-off", "y")
	afterOff.DependsOn = []string{"off"}

	results, err := NewRunner(fake, Options{}).Run(context.Background(), []types.InstallStep{tools, node, off, afterOff})
	require.NoError(t, err)

	st := statuses(results)
	assert.Equal(t, types.StatusFailed, st["node"])
	assert.Equal(t, types.StatusSkipped, st["tools"])
	assert.Equal(t, types.StatusSkipped, st["after-off"])
	assert.Empty(t, fake.CallsMatching("npm"))

	// node is declared after tools but must run first
	assert.Equal(t, "node", results[0].Name)
}

func TestRunner_MissingPrerequisite(t *testing.T) {
	fake := testutil.NewFakeRunner().Missing("npm")
	step := types.InstallStep{
		Name: "ts", Plugin: "tools", Category: "node", Kind: "npm", Enabled: true,
		Params: map[string]interface{}{"packages": []interface{}{"typescript"}},
	}

	results, err := NewRunner(fake, Options{}).Run(context.Background(), []types.InstallStep{step})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, types.StatusSkipped, results[0].Status)
	assert.Contains(t, results[0].Message, "missing prerequisite")
	assert.False(t, HasFailures(results))
}

func TestRunner_DryRun(t *testing.T) {
	installed := map[string]bool{"git": true}
	fake := fakeApt(installed)

	results, err := NewRunner(fake, Options{DryRun: true}).Run(context.Background(), []types.InstallStep{
		aptStep("present", "git"),
		aptStep("absent", "jq"),
	})
	require.NoError(t, err)

	st := statuses(results)
	assert.Equal(t, types.StatusAlreadyPresent, st["present"])
	assert.Equal(t, types.StatusWouldInstall, st["absent"])
	assert.Empty(t, fake.CallsMatching("apt-get"))
}

func TestRunner_InvalidGraph(t *testing.T) {
	a := aptStep("a", "x")
	a.DependsOn = []string{"b"}
	b := aptStep("b", "y")
	b.DependsOn = []string{"a"}

	_, err := NewRunner(testutil.NewFakeRunner(), Options{}).Run(context.Background(), []types.InstallStep{a, b})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigValid))
}

func TestRunner_UnknownKind(t *testing.T) {
	step := types.InstallStep{Name: "odd", Plugin: "p", Kind: "brew", Enabled: true}
	results, err := NewRunner(testutil.NewFakeRunner(), Options{}).Run(context.Background(), []types.InstallStep{step})
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, results[0].Status)
	assert.Contains(t, results[0].Error, "unknown step kind")
}

func TestOrder(t *testing.T) {
	mk := func(plugin, name string, deps ...string) types.InstallStep {
		return types.InstallStep{Name: name, Plugin: plugin, DependsOn: deps}
	}

	tests := []struct {
		name    string
		steps   []types.InstallStep
		want    []string
		wantErr string
	}{
		{
			name:  "declaration_order_without_deps",
			steps: []types.InstallStep{mk("p", "c"), mk("p", "a"), mk("p", "b")},
			want:  []string{"p/c", "p/a", "p/b"},
		},
		{
			name:  "dependency_moves_earlier",
			steps: []types.InstallStep{mk("p", "a", "c"), mk("p", "b"), mk("p", "c")},
			want:  []string{"p/b", "p/c", "p/a"},
		},
		{
			name:  "cross_plugin",
			steps: []types.InstallStep{mk("web", "lint", "node/runtime"), mk("node", "runtime")},
			want:  []string{"node/runtime", "web/lint"},
		},
		{
			name:    "unknown_dependency",
			steps:   []types.InstallStep{mk("p", "a", "missing")},
			wantErr: "unknown step",
		},
		{
			name:    "cycle",
			steps:   []types.InstallStep{mk("p", "a", "b"), mk("p", "b", "a"), mk("p", "c")},
			wantErr: "dependency cycle among steps: p/a, p/b",
		},
		{
			name:    "duplicate",
			steps:   []types.InstallStep{mk("p", "a"), mk("p", "a")},
			wantErr: "duplicate step",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Order(tt.steps)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			var ids []string
			for _, s := range got {
				ids = append(ids, s.ID())
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestGenericProbe(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "marker"), []byte("x"), 0644))

	fake := testutil.NewFakeRunner().
		Missing("delta").
		On("bash -c test -d /opt/sdk", 1, "").
		On("bash -c command -v go", 0, "")

	tests := []struct {
		name  string
		probe types.ProbeSpec
		want  bool
	}{
		{"command_present", types.ProbeSpec{Command: "rg"}, true},
		{"command_absent", types.ProbeSpec{Command: "delta"}, false},
		{"path_relative_present", types.ProbeSpec{Path: "marker"}, true},
		{"path_absent", types.ProbeSpec{Path: "nope"}, false},
		{"check_passes", types.ProbeSpec{Check: "command -v go"}, true},
		{"check_fails", types.ProbeSpec{Check: "test -d /opt/sdk"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step := types.InstallStep{
				Name: "s", Plugin: "p", PluginRoot: root, Kind: "shell", Enabled: true,
				Params: map[string]interface{}{"command": "true"},
				Probe:  tt.probe,
			}
			inst, err := New(step, Deps{Runner: fake})
			require.NoError(t, err)
			got, err := inst.Probe(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProbeOverridesBuiltIn(t *testing.T) {
	fake := testutil.NewFakeRunner()
	step := aptStep("docker", "docker-ce")
	step.Probe = types.ProbeSpec{Command: "docker"}

	inst, err := New(step, Deps{Runner: fake})
	require.NoError(t, err)
	present, err := inst.Probe(context.Background())
	require.NoError(t, err)
	assert.True(t, present)
	assert.Empty(t, fake.CallsMatching("dpkg-query"))
}

func TestScriptInstaller(t *testing.T) {
	root := t.TempDir()
	scriptStep := func(path string) types.InstallStep {
		return types.InstallStep{
			Name: "setup", Plugin: "p", PluginRoot: root, Kind: "script", Enabled: true,
			Params: map[string]interface{}{"path": path, "args": []interface{}{"--quiet"}},
			Probe:  types.ProbeSpec{Path: "/nonexistent/devplug-marker"},
		}
	}

	t.Run("runs_plugin_relative_script", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(root, "setup.sh"), []byte("#!/bin/bash\n"), 0755))
		fake := testutil.NewFakeRunner()
		res := runOne(t, fake, scriptStep("setup.sh"))
		assert.Equal(t, types.StatusInstalled, res.Status)

		calls := fake.CallsMatching("bash")
		require.Len(t, calls, 1)
		assert.Equal(t, []string{filepath.Join(root, "setup.sh"), "--quiet"}, calls[0].Args)
		assert.Equal(t, root, calls[0].Dir)
		assert.Equal(t, root, testutil.EnvValue(calls[0], "DEVPLUG_PLUGIN_ROOT"))
	})

	t.Run("missing_script_is_skipped", func(t *testing.T) {
		res := runOne(t, testutil.NewFakeRunner(), scriptStep("absent.sh"))
		assert.Equal(t, types.StatusSkipped, res.Status)
	})

	t.Run("requires_probe", func(t *testing.T) {
		step := scriptStep("setup.sh")
		step.Probe = types.ProbeSpec{}
		_, err := New(step, Deps{Runner: testutil.NewFakeRunner()})
		assert.True(t, errors.IsErrorCode(err, errors.ErrConfigValid))
	})
}

func TestGitInstaller(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "src", "fzf")
	step := types.InstallStep{
		Name: "fzf", Plugin: "p", Kind: "git", Enabled: true,
		Params: map[string]interface{}{"url": "https://github.com/junegunn/fzf", "dest": dest, "depth": 1},
	}
	fake := testutil.NewFakeRunner()

	res := runOne(t, fake, step)
	assert.Equal(t, types.StatusInstalled, res.Status)
	assert.Equal(t, []string{"git clone --depth 1 https://github.com/junegunn/fzf " + dest}, fake.CommandLines())

	require.NoError(t, os.MkdirAll(filepath.Join(dest, ".git"), 0755))
	fake.Reset()
	res = runOne(t, fake, step)
	assert.Equal(t, types.StatusAlreadyPresent, res.Status)
	assert.Empty(t, fake.Calls())
}

func TestDownloadInstaller(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "bin", "tool")
	step := types.InstallStep{
		Name: "tool", Plugin: "p", Kind: "download", Enabled: true,
		Params: map[string]interface{}{"url": "https://example.com/tool", "dest": dest, "mode": "0755"},
	}
	fake := testutil.NewFakeRunner().OnFunc("curl", func(cmd executor.Command) executor.Result {
		_ = os.WriteFile(cmd.Args[2], []byte("bin"), 0600)
		return executor.Result{}
	})

	res := runOne(t, fake, step)
	require.Equal(t, types.StatusInstalled, res.Status, res.Error)

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())

	fake.Reset()
	assert.Equal(t, types.StatusAlreadyPresent, runOne(t, fake, step).Status)
}

func TestDownloadInstaller_InterruptedTransferIsRetried(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bin")
	dest := filepath.Join(dir, "tool")
	step := types.InstallStep{
		Name: "tool", Plugin: "p", Kind: "download", Enabled: true,
		Params: map[string]interface{}{"url": "https://example.com/tool", "dest": dest},
	}
	// curl exit 18: transfer closed with outstanding data
	fake := testutil.NewFakeRunner().OnFunc("curl", func(cmd executor.Command) executor.Result {
		_ = os.WriteFile(cmd.Args[2], []byte("partial"), 0600)
		return executor.Result{ExitCode: 18}
	})

	res := runOne(t, fake, step)
	assert.Equal(t, types.StatusFailed, res.Status)
	assert.NoFileExists(t, dest)
	left, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, left)

	fake.Reset()
	res = runOne(t, fake, step)
	assert.Equal(t, types.StatusFailed, res.Status)
	assert.Len(t, fake.CallsMatching("curl"), 1)
}

func TestRunner_LogsStepDetail(t *testing.T) {
	logs := testutil.CaptureLogs(t)
	step := types.InstallStep{
		Name: "ts", Plugin: "tools", Kind: "npm", Enabled: true,
		Params: map[string]interface{}{"packages": "typescript"},
	}

	res := runOne(t, testutil.NewFakeRunner().Missing("npm"), step)
	require.Equal(t, types.StatusSkipped, res.Status)

	entries := logs.Entries(t, "Step finished")
	require.Len(t, entries, 1)
	assert.Equal(t, "tools/ts", entries[0]["step"])
	assert.Contains(t, entries[0]["detail"], "missing prerequisite")
}

func TestParams(t *testing.T) {
	p := params{types.InstallStep{Params: map[string]interface{}{
		"packages": "jq ripgrep",
		"package":  "fd-find",
		"mode_str": "0700",
		"mode_int": 0750,
		"bad_mode": "rwx",
	}}}

	pkgs, err := p.packages()
	require.NoError(t, err)
	assert.Equal(t, []string{"jq", "ripgrep", "fd-find"}, pkgs)

	m, err := p.fileMode("mode_str", 0)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), m)

	m, err = p.fileMode("mode_int", 0)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0750), m)

	m, err = p.fileMode("unset", 0644)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), m)

	_, err = p.fileMode("bad_mode", 0)
	assert.Error(t, err)

	_, err = params{types.InstallStep{}}.packages()
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigValid))
}

func TestPackageNames(t *testing.T) {
	assert.Equal(t, "@anthropic-ai/sdk", npmPackageName("@anthropic-ai/sdk@1.2.0"))
	assert.Equal(t, "@scope/pkg", npmPackageName("@scope/pkg"))
	assert.Equal(t, "typescript", npmPackageName("typescript@5"))
	assert.Equal(t, "black", pipPackageName("black[d]>=23.1"))
	assert.Equal(t, "requests", pipPackageName("requests==2.31.0"))
	assert.Equal(t, "httpie", pipPackageName("httpie"))
}

func TestKinds(t *testing.T) {
	for _, k := range []string{"apt", "npm", "pip", "git", "download", "script", "shell"} {
		assert.True(t, HasKind(k), k)
	}
	assert.False(t, HasKind("brew"))
	assert.Contains(t, Kinds(), "apt")
}

func runOne(t *testing.T, fake *testutil.FakeRunner, step types.InstallStep) types.StepResult {
	t.Helper()
	results, err := NewRunner(fake, Options{}).Run(context.Background(), []types.InstallStep{step})
	require.NoError(t, err)
	require.Len(t, results, 1)
	return results[0]
}
