package ui_test

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/summary"
	"github.com/arthur-debert/devplug/pkg/types"
	"github.com/arthur-debert/devplug/pkg/ui"
)

func sample() *summary.RunSummary {
	s := summary.New("install", false)
	s.Add(
		types.StepResult{Name: "tmux", Plugin: "tools", Category: "tools", Status: types.StatusInstalled},
		types.StepResult{Name: "ripgrep", Plugin: "tools", Category: "tools", Status: types.StatusAlreadyPresent},
		types.StepResult{Name: "neovim", Plugin: "editors", Category: "editors", Status: types.StatusFailed, Error: "exit status 100"},
	)
	s.Warn("npm not found on PATH")
	s.Finish()
	return s
}

func render(t *testing.T, format ui.Format, fn func(ui.Renderer) error) string {
	t.Helper()
	var buf bytes.Buffer
	r, err := ui.NewRenderer(format, &buf)
	require.NoError(t, err)
	require.NoError(t, fn(r))
	return buf.String()
}

func TestNewRenderer_AutoOnBufferIsText(t *testing.T) {
	out := render(t, ui.FormatAuto, func(r ui.Renderer) error { return r.RenderMessage("hello") })
	assert.Equal(t, "hello\n", out)

	_, err := ui.NewRenderer(ui.Format(42), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRenderSummary(t *testing.T) {
	for _, format := range []ui.Format{ui.FormatText, ui.FormatTerminal} {
		t.Run(format.String(), func(t *testing.T) {
			out := render(t, format, func(r ui.Renderer) error { return r.RenderSummary(sample()) })
			assert.Contains(t, out, "install")
			assert.Contains(t, out, "tools")
			assert.Contains(t, out, "editors")
			assert.Contains(t, out, "editors/neovim")
			assert.Contains(t, out, "exit status 100")
			assert.Contains(t, out, "npm not found on PATH")
			assert.Contains(t, out, "3 steps")
		})
	}
}

func TestRenderSummary_Text(t *testing.T) {
	out := render(t, ui.FormatText, func(r ui.Renderer) error { return r.RenderSummary(sample()) })
	assert.Regexp(t, `tools\s+1\s+1\s+0\s+0\s+0\s+installed`, out)
	assert.Regexp(t, `editors\s+0\s+0\s+0\s+0\s+1\s+failed`, out)
	assert.Contains(t, out, "FAILED editors/neovim: exit status 100")
}

func TestRenderSummary_JSON(t *testing.T) {
	s := sample()
	out := render(t, ui.FormatJSON, func(r ui.Renderer) error { return r.RenderSummary(s) })

	var doc struct {
		ID         string             `json:"id"`
		Command    string             `json:"command"`
		Results    []types.StepResult `json:"results"`
		Categories []summary.Counts   `json:"categories"`
		Totals     summary.Counts     `json:"totals"`
		FinishedAt time.Time          `json:"finished_at"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, s.ID, doc.ID)
	assert.Equal(t, "install", doc.Command)
	assert.Len(t, doc.Results, 3)
	require.Len(t, doc.Categories, 2)
	assert.Equal(t, 1, doc.Categories[1].Failed)
	assert.Equal(t, 3, doc.Totals.Total())
}

func TestRenderPlugins(t *testing.T) {
	plugins := []types.PluginRegistryEntry{
		{Name: "tools", Path: "/p/tools", Enabled: true, Version: "1.0.0"},
		{Name: "editors", Path: "/p/editors", Enabled: false, Version: "0.2.0"},
	}

	text := render(t, ui.FormatText, func(r ui.Renderer) error { return r.RenderPlugins(plugins) })
	assert.Regexp(t, `tools\s+1\.0\.0\s+enabled\s+/p/tools`, text)
	assert.Regexp(t, `editors\s+0\.2\.0\s+disabled\s+/p/editors`, text)

	term := render(t, ui.FormatTerminal, func(r ui.Renderer) error { return r.RenderPlugins(plugins) })
	assert.Contains(t, term, "tools")
	assert.Contains(t, term, "disabled")

	empty := render(t, ui.FormatText, func(r ui.Renderer) error { return r.RenderPlugins(nil) })
	assert.Contains(t, empty, "No plugins registered")

	js := render(t, ui.FormatJSON, func(r ui.Renderer) error { return r.RenderPlugins(nil) })
	assert.JSONEq(t, `{"plugins": []}`, js)
}

func TestRenderProblems(t *testing.T) {
	text := render(t, ui.FormatText, func(r ui.Renderer) error {
		return r.RenderProblems("tools", []string{"duplicate step name \"tmux\""})
	})
	assert.Contains(t, text, "tools: 1 problem(s)")
	assert.Contains(t, text, `- duplicate step name "tmux"`)

	valid := render(t, ui.FormatText, func(r ui.Renderer) error { return r.RenderProblems("tools", nil) })
	assert.Equal(t, "tools: valid\n", valid)

	js := render(t, ui.FormatJSON, func(r ui.Renderer) error { return r.RenderProblems("tools", nil) })
	assert.JSONEq(t, `{"subject": "tools", "valid": true, "problems": []}`, js)
}

func TestRenderMounts(t *testing.T) {
	mounts := []types.MountEntry{{HostPath: "/p/mounted-files/root/.bashrc", ContainerPath: "/root/.bashrc", Mode: types.MountReadWrite, Kind: types.MountFile}}
	links := []types.SymlinkEntry{{Link: "/home/mars/link", Target: "/root/target.txt"}}

	text := render(t, ui.FormatText, func(r ui.Renderer) error { return r.RenderMounts(mounts, links, []string{"skipping symlink /x"}) })
	assert.Contains(t, text, "/p/mounted-files/root/.bashrc:/root/.bashrc:rw\n")
	assert.Contains(t, text, "link /home/mars/link -> /root/target.txt\n")
	assert.Contains(t, text, "WARNING skipping symlink /x\n")

	term := render(t, ui.FormatTerminal, func(r ui.Renderer) error { return r.RenderMounts(mounts, links, nil) })
	assert.Contains(t, term, "/root/.bashrc")
}

func TestRenderError(t *testing.T) {
	coded := errors.New(errors.ErrPluginNotFound, "no plugin named tools")

	text := render(t, ui.FormatText, func(r ui.Renderer) error { return r.RenderError(coded) })
	assert.Equal(t, "Error: [PLUGIN_NOT_FOUND] no plugin named tools\n", text)

	term := render(t, ui.FormatTerminal, func(r ui.Renderer) error { return r.RenderError(coded) })
	assert.Contains(t, term, "PLUGIN_NOT_FOUND")
	assert.Contains(t, term, "no plugin named tools")

	plain := render(t, ui.FormatTerminal, func(r ui.Renderer) error { return r.RenderError(stderrors.New("boom")) })
	assert.Contains(t, plain, "boom")

	js := render(t, ui.FormatJSON, func(r ui.Renderer) error { return r.RenderError(coded) })
	assert.JSONEq(t, `{"error": "no plugin named tools", "code": "PLUGIN_NOT_FOUND", "details": {}}`, js)
}
