// Package ui renders command results in terminal (rich), text (plain) or
// JSON form.
package ui

import (
	"io"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/summary"
	"github.com/arthur-debert/devplug/pkg/types"
	"github.com/arthur-debert/devplug/pkg/ui/json"
	"github.com/arthur-debert/devplug/pkg/ui/terminal"
	"github.com/arthur-debert/devplug/pkg/ui/text"
)

// Renderer is the common interface for all output renderers.
type Renderer interface {
	// RenderSummary renders a run summary grouped by category.
	RenderSummary(s *summary.RunSummary) error

	// RenderPlugins renders registry entries.
	RenderPlugins(plugins []types.PluginRegistryEntry) error

	// RenderProblems renders validation problems for subject. An empty
	// list reports the subject as valid.
	RenderProblems(subject string, problems []string) error

	// RenderMounts renders generated mounts and symlinks.
	RenderMounts(mounts []types.MountEntry, symlinks []types.SymlinkEntry, warnings []string) error

	// RenderMessage renders a simple message.
	RenderMessage(msg string) error

	// RenderError renders an error.
	RenderError(err error) error
}

// NewRenderer creates a renderer for format, resolving FormatAuto against
// output first.
func NewRenderer(format Format, output io.Writer) (Renderer, error) {
	switch format.Resolve(output) {
	case FormatTerminal:
		return terminal.New(output), nil
	case FormatText:
		return text.New(output), nil
	case FormatJSON:
		return json.New(output), nil
	default:
		return nil, errors.Newf(errors.ErrInvalidInput, "unknown format: %v", format)
	}
}
