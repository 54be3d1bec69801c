// Package json provides machine-readable JSON output.
package json

import (
	"encoding/json"
	"io"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/summary"
	"github.com/arthur-debert/devplug/pkg/types"
)

// Renderer writes one indented JSON document per call.
type Renderer struct {
	encoder *json.Encoder
}

// New creates a new JSON renderer.
func New(output io.Writer) *Renderer {
	encoder := json.NewEncoder(output)
	encoder.SetIndent("", "  ")
	return &Renderer{encoder: encoder}
}

type summaryDoc struct {
	*summary.RunSummary
	Categories []summary.Counts `json:"categories"`
	Totals     summary.Counts   `json:"totals"`
}

// RenderSummary renders the summary with its aggregated counts.
func (r *Renderer) RenderSummary(s *summary.RunSummary) error {
	return r.encoder.Encode(summaryDoc{RunSummary: s, Categories: s.Categories(), Totals: s.Totals()})
}

// RenderPlugins renders registry entries.
func (r *Renderer) RenderPlugins(plugins []types.PluginRegistryEntry) error {
	if plugins == nil {
		plugins = []types.PluginRegistryEntry{}
	}
	return r.encoder.Encode(map[string]interface{}{"plugins": plugins})
}

// RenderProblems renders validation output.
func (r *Renderer) RenderProblems(subject string, problems []string) error {
	if problems == nil {
		problems = []string{}
	}
	return r.encoder.Encode(map[string]interface{}{
		"subject":  subject,
		"valid":    len(problems) == 0,
		"problems": problems,
	})
}

// RenderMounts renders mounts and symlinks.
func (r *Renderer) RenderMounts(mounts []types.MountEntry, symlinks []types.SymlinkEntry, warnings []string) error {
	if mounts == nil {
		mounts = []types.MountEntry{}
	}
	if symlinks == nil {
		symlinks = []types.SymlinkEntry{}
	}
	return r.encoder.Encode(map[string]interface{}{
		"mounts":   mounts,
		"symlinks": symlinks,
		"warnings": warnings,
	})
}

// RenderMessage renders a simple message.
func (r *Renderer) RenderMessage(msg string) error {
	return r.encoder.Encode(map[string]string{"message": msg})
}

// RenderError renders an error with its code and details.
func (r *Renderer) RenderError(err error) error {
	return r.encoder.Encode(map[string]interface{}{
		"error":   errors.Message(err),
		"code":    errors.GetErrorCode(err),
		"details": errors.GetErrorDetails(err),
	})
}
