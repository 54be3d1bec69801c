// Package text provides plain text output without any styling.
package text

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/arthur-debert/devplug/pkg/summary"
	"github.com/arthur-debert/devplug/pkg/types"
)

// Renderer writes aligned plain text.
type Renderer struct {
	output io.Writer
}

// New creates a new text renderer.
func New(output io.Writer) *Renderer {
	return &Renderer{output: output}
}

// RenderSummary renders per-category counts, then failures and warnings.
func (r *Renderer) RenderSummary(s *summary.RunSummary) error {
	var b strings.Builder
	title := s.Command
	if s.DryRun {
		title += " (dry run)"
	}
	fmt.Fprintf(&b, "%s: %s\n", title, s.ID)

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tINSTALLED\tPRESENT\tSKIPPED\tDISABLED\tFAILED\tSTATUS")
	for _, c := range s.Categories() {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%s\n", c.Category, c.Installed, c.AlreadyPresent, c.Skipped, c.Disabled, c.Failed, c.Status())
	}
	_ = tw.Flush()

	for _, f := range s.Failures() {
		fmt.Fprintf(&b, "FAILED %s: %s\n", resultName(f), firstNonEmpty(f.Error, f.Message))
	}
	for _, w := range s.Warnings {
		fmt.Fprintf(&b, "WARNING %s\n", w)
	}

	t := s.Totals()
	fmt.Fprintf(&b, "%d steps: %d installed, %d present, %d skipped, %d failed\n", t.Total(), t.Installed, t.AlreadyPresent, t.Skipped, t.Failed)

	_, err := io.WriteString(r.output, b.String())
	return err
}

// RenderPlugins renders one line per plugin.
func (r *Renderer) RenderPlugins(plugins []types.PluginRegistryEntry) error {
	if len(plugins) == 0 {
		_, err := fmt.Fprintln(r.output, "No plugins registered.")
		return err
	}
	tw := tabwriter.NewWriter(r.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVERSION\tSTATE\tPATH")
	for _, p := range plugins {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Name, p.Version, state(p.Enabled), p.Path)
	}
	return tw.Flush()
}

// RenderProblems renders validation output.
func (r *Renderer) RenderProblems(subject string, problems []string) error {
	if len(problems) == 0 {
		_, err := fmt.Fprintf(r.output, "%s: valid\n", subject)
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d problem(s)\n", subject, len(problems))
	for _, p := range problems {
		fmt.Fprintf(&b, "  - %s\n", p)
	}
	_, err := io.WriteString(r.output, b.String())
	return err
}

// RenderMounts renders mounts in compose short syntax.
func (r *Renderer) RenderMounts(mounts []types.MountEntry, symlinks []types.SymlinkEntry, warnings []string) error {
	var b strings.Builder
	for _, m := range mounts {
		fmt.Fprintf(&b, "%s\n", m)
	}
	for _, l := range symlinks {
		fmt.Fprintf(&b, "link %s -> %s\n", l.Link, l.Target)
	}
	for _, w := range warnings {
		fmt.Fprintf(&b, "WARNING %s\n", w)
	}
	_, err := io.WriteString(r.output, b.String())
	return err
}

// RenderMessage renders a simple message.
func (r *Renderer) RenderMessage(msg string) error {
	_, err := fmt.Fprintln(r.output, msg)
	return err
}

// RenderError renders an error.
func (r *Renderer) RenderError(err error) error {
	_, werr := fmt.Fprintf(r.output, "Error: %v\n", err)
	return werr
}

func resultName(res types.StepResult) string {
	if res.Plugin == "" || res.Plugin == res.Name {
		return res.Name
	}
	return res.Plugin + "/" + res.Name
}

func state(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
