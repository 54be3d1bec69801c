// Package terminal provides rich terminal output: pterm tables with
// lipgloss styles.
package terminal

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/summary"
	"github.com/arthur-debert/devplug/pkg/types"
	"github.com/arthur-debert/devplug/pkg/ui/styles"
)

// Renderer writes styled tables.
type Renderer struct {
	output io.Writer
}

// New creates a new terminal renderer.
func New(output io.Writer) *Renderer {
	return &Renderer{output: output}
}

func (r *Renderer) write(s string) error {
	_, err := io.WriteString(r.output, s)
	return err
}

func (r *Renderer) table(data pterm.TableData) (string, error) {
	return pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
}

// RenderSummary renders per-category counts, then failures and warnings.
func (r *Renderer) RenderSummary(s *summary.RunSummary) error {
	var b strings.Builder

	title := "devplug " + s.Command
	if s.DryRun {
		title += " (dry run)"
	}
	b.WriteString(styles.Get("Header").Render(title))
	b.WriteString("\n")

	data := pterm.TableData{{"Category", "Installed", "Present", "Skipped", "Disabled", "Failed", "Status"}}
	for _, c := range s.Categories() {
		st := c.Status()
		data = append(data, []string{
			styles.Get("Bold").Render(c.Category),
			count(c.Installed, types.StatusInstalled),
			count(c.AlreadyPresent, types.StatusAlreadyPresent),
			count(c.Skipped, types.StatusSkipped),
			count(c.Disabled, types.StatusDisabled),
			count(c.Failed, types.StatusFailed),
			styles.Status(st, string(st)),
		})
	}
	if len(data) > 1 {
		tbl, err := r.table(data)
		if err != nil {
			return errors.Wrap(err, errors.ErrInternal, "cannot render summary table")
		}
		b.WriteString(tbl)
		b.WriteString("\n")
	} else {
		b.WriteString(styles.Get("Muted").Render("Nothing to do."))
		b.WriteString("\n")
	}

	for _, f := range s.Failures() {
		name := f.Name
		if f.Plugin != "" && f.Plugin != f.Name {
			name = f.Plugin + "/" + f.Name
		}
		reason := f.Error
		if reason == "" {
			reason = f.Message
		}
		fmt.Fprintf(&b, "%s %s %s\n",
			styles.Get("Error").Render("✗"),
			styles.Get("PluginName").Render(name),
			styles.Get("Muted").Render(reason))
	}
	for _, w := range s.Warnings {
		fmt.Fprintf(&b, "%s %s\n", styles.Get("Warning").Render("!"), w)
	}

	t := s.Totals()
	totalStyle := "Success"
	if t.Failed > 0 {
		totalStyle = "Error"
	}
	b.WriteString(styles.Get(totalStyle).Render(fmt.Sprintf(
		"%d steps: %d installed, %d present, %d skipped, %d failed",
		t.Total(), t.Installed, t.AlreadyPresent, t.Skipped, t.Failed)))
	b.WriteString("\n")

	return r.write(b.String())
}

func count(n int, st types.StepStatus) string {
	if n == 0 {
		return styles.Get("Muted").Render("0")
	}
	return styles.Status(st, strconv.Itoa(n))
}

// RenderPlugins renders a registry table.
func (r *Renderer) RenderPlugins(plugins []types.PluginRegistryEntry) error {
	if len(plugins) == 0 {
		return r.write(styles.Get("Muted").Render("No plugins registered.") + "\n")
	}
	data := pterm.TableData{{"Name", "Version", "State", "Path"}}
	for _, p := range plugins {
		st := styles.Status(types.StatusInstalled, "enabled")
		if !p.Enabled {
			st = styles.Status(types.StatusDisabled, "disabled")
		}
		data = append(data, []string{
			styles.Get("PluginName").Render(p.Name),
			p.Version,
			st,
			styles.Get("FilePath").Render(p.Path),
		})
	}
	tbl, err := r.table(data)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "cannot render plugin table")
	}
	return r.write(tbl + "\n")
}

// RenderProblems renders validation output.
func (r *Renderer) RenderProblems(subject string, problems []string) error {
	if len(problems) == 0 {
		return r.write(fmt.Sprintf("%s %s is valid\n", styles.Get("Success").Render("✓"), styles.Get("PluginName").Render(subject)))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s has %d problem(s)\n", styles.Get("Error").Render("✗"), styles.Get("PluginName").Render(subject), len(problems))
	for _, p := range problems {
		fmt.Fprintf(&b, "  %s %s\n", styles.Get("Muted").Render("-"), p)
	}
	return r.write(b.String())
}

// RenderMounts renders a mount table and the re-created symlinks.
func (r *Renderer) RenderMounts(mounts []types.MountEntry, symlinks []types.SymlinkEntry, warnings []string) error {
	var b strings.Builder
	if len(mounts) > 0 {
		data := pterm.TableData{{"Container path", "Mode", "Kind", "Host path"}}
		for _, m := range mounts {
			mode := styles.Get("Success").Render(string(m.Mode))
			if m.Mode == types.MountReadOnly {
				mode = styles.Get("Muted").Render(string(m.Mode))
			}
			data = append(data, []string{m.ContainerPath, mode, string(m.Kind), styles.Get("FilePath").Render(m.HostPath)})
		}
		tbl, err := r.table(data)
		if err != nil {
			return errors.Wrap(err, errors.ErrInternal, "cannot render mount table")
		}
		b.WriteString(tbl)
		b.WriteString("\n")
	} else {
		b.WriteString(styles.Get("Muted").Render("No mounts.") + "\n")
	}
	for _, l := range symlinks {
		fmt.Fprintf(&b, "%s %s -> %s\n", styles.Get("Info").Render("link"), l.Link, l.Target)
	}
	for _, w := range warnings {
		fmt.Fprintf(&b, "%s %s\n", styles.Get("Warning").Render("!"), w)
	}
	return r.write(b.String())
}

// RenderMessage renders a simple message.
func (r *Renderer) RenderMessage(msg string) error {
	return r.write(styles.Get("Info").Render(msg) + "\n")
}

// RenderError renders an error, with its code when it has one.
func (r *Renderer) RenderError(err error) error {
	code := errors.GetErrorCode(err)
	if code == errors.ErrUnknown {
		return r.write(fmt.Sprintf("%s %s\n", styles.Get("Error").Render("Error:"), err.Error()))
	}
	return r.write(fmt.Sprintf("%s %s %s\n",
		styles.Get("Error").Render("Error:"),
		styles.Get("Muted").Render("["+string(code)+"]"),
		errors.Message(err)))
}
