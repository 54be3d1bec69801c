package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/devplug/pkg/cobrax/topics"
	"github.com/arthur-debert/devplug/pkg/core"
	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/ui"
)

// pluginNamesCompletion completes registered plugin names not yet given.
func pluginNamesCompletion(g *globals) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		s, err := g.session(cmd)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		plugins, err := s.app.ListPlugins()
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}

		given := make(map[string]bool, len(args))
		for _, a := range args {
			given[a] = true
		}
		var names []string
		for _, p := range plugins {
			if !given[p.Name] && strings.HasPrefix(p.Name, toComplete) {
				names = append(names, p.Name)
			}
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	}
}

// pluginPath picks the explicit argument, then runtime.plugin_root, then
// the working directory.
func pluginPath(s *session, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	if s.cfg.Runtime.PluginRoot != "" {
		return s.cfg.Runtime.PluginRoot
	}
	return "."
}

func newRegisterCmd(g *globals) *cobra.Command {
	var disabled bool
	cmd := &cobra.Command{
		Use:     "register-plugin [path]",
		Short:   MsgRegisterShort,
		Long:    MsgRegisterLong,
		Example: MsgRegisterExample,
		GroupID: "plugins",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.session(cmd)
			if err != nil {
				return err
			}

			var enabled *bool
			if cmd.Flags().Changed("disabled") {
				on := !disabled
				enabled = &on
			}
			entry, updated, err := s.app.RegisterPlugin(pluginPath(s, args), enabled)
			if err != nil {
				if problems := problemsOf(err); len(problems) > 0 {
					_ = s.renderer.RenderProblems(pluginPath(s, args), problems)
				}
				return err
			}

			msg := MsgRegistered
			if updated {
				msg = MsgUpdated
			}
			return s.renderer.RenderMessage(fmt.Sprintf(msg, entry.Name, entry.Version, entry.Path))
		},
	}
	cmd.Flags().BoolVar(&disabled, "disabled", false, MsgFlagDisabled)
	return cmd
}

func newUnregisterCmd(g *globals) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:               "unregister-plugin <name>",
		Short:             MsgUnregisterShort,
		Long:              MsgUnregisterLong,
		GroupID:           "plugins",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: pluginNamesCompletion(g),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.session(cmd)
			if err != nil {
				return err
			}
			name := args[0]

			if !yes {
				if !g.interactive() {
					return errors.Newf(errors.ErrInvalidInput, "refusing to unregister %s without --yes in a non-interactive session", name)
				}
				// fail early on unknown names rather than after the prompt
				if _, err := s.app.Store.Get(name); err != nil {
					return err
				}
				confirmed := false
				form := huh.NewForm(huh.NewGroup(
					huh.NewConfirm().
						Title(fmt.Sprintf(MsgConfirmUnregister, name)).
						Affirmative("Yes").
						Negative("No").
						Value(&confirmed),
				))
				form.WithInput(cmd.InOrStdin()).WithOutput(cmd.ErrOrStderr()).WithTheme(huh.ThemeCharm())
				if err := form.Run(); err != nil {
					return errors.Wrap(err, errors.ErrInvalidInput, "confirmation failed")
				}
				if !confirmed {
					return s.renderer.RenderMessage(MsgAborted)
				}
			}

			if err := s.app.UnregisterPlugin(name); err != nil {
				return err
			}
			return s.renderer.RenderMessage(fmt.Sprintf(MsgUnregistered, name))
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, MsgFlagYes)
	return cmd
}

func newEnableCmd(g *globals, enable bool) *cobra.Command {
	use, short, done := "enable-plugin <name>", MsgEnableShort, MsgEnabled
	if !enable {
		use, short, done = "disable-plugin <name>", MsgDisableShort, MsgDisabled
	}
	return &cobra.Command{
		Use:               use,
		Short:             short,
		GroupID:           "plugins",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: pluginNamesCompletion(g),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.session(cmd)
			if err != nil {
				return err
			}
			entry, err := s.app.SetPluginEnabled(args[0], enable)
			if err != nil {
				return err
			}
			return s.renderer.RenderMessage(fmt.Sprintf(done, entry.Name))
		},
	}
}

func newListCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "list-plugins",
		Aliases: []string{"ls"},
		Short:   MsgListShort,
		GroupID: "plugins",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.session(cmd)
			if err != nil {
				return err
			}
			plugins, err := s.app.ListPlugins()
			if err != nil {
				return err
			}
			return s.renderer.RenderPlugins(plugins)
		},
	}
}

func newValidateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "validate-plugin [path]",
		Short:   MsgValidateShort,
		Long:    MsgValidateLong,
		GroupID: "plugins",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.session(cmd)
			if err != nil {
				return err
			}
			name, problems, err := s.app.ValidatePlugin(pluginPath(s, args))
			if err != nil {
				return err
			}
			if err := s.renderer.RenderProblems(name, problems); err != nil {
				return err
			}
			if len(problems) > 0 {
				return errors.Newf(errors.ErrConfigValid, "plugin %s has %d problem(s)", name, len(problems))
			}
			return nil
		},
	}
}

func newInfoCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:               "info-plugin <name>",
		Short:             MsgInfoShort,
		GroupID:           "plugins",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: pluginNamesCompletion(g),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.session(cmd)
			if err != nil {
				return err
			}
			info, err := s.app.InfoPlugin(args[0])
			if err != nil {
				return err
			}

			text := describePlugin(info)
			if info.Readme != "" {
				readme := info.Readme
				if s.format == ui.FormatTerminal {
					readme = topics.NewGlamourRenderer().Render(readme, ".md")
				}
				text += "\n" + readme
			}
			return s.renderer.RenderMessage(strings.TrimRight(text, "\n"))
		},
	}
}

func describePlugin(info *core.PluginInfo) string {
	var b strings.Builder
	m := info.Manifest
	state := "enabled"
	if !info.Entry.Enabled {
		state = "disabled"
	}

	fmt.Fprintf(&b, "%s %s (%s)\n", info.Entry.Name, m.Version, state)
	if m.Description != "" {
		fmt.Fprintf(&b, "%s\n", m.Description)
	}
	fmt.Fprintf(&b, "path:        %s\n", info.Entry.Path)
	fmt.Fprintf(&b, "registered:  %s\n", info.Entry.RegisteredAt.Local().Format("2006-01-02 15:04"))
	if m.MinDevplug != "" {
		fmt.Fprintf(&b, "min devplug: %s\n", m.MinDevplug)
	}
	if len(m.Hooks) > 0 {
		phases := make([]string, 0, len(m.Hooks))
		for _, p := range m.Hooks {
			phases = append(phases, string(p))
		}
		fmt.Fprintf(&b, "hooks:       %s\n", strings.Join(phases, ", "))
	}
	if len(m.Steps) > 0 {
		names := make([]string, 0, len(m.Steps))
		for _, st := range m.Steps {
			names = append(names, st.Name+" ("+st.Kind+")")
		}
		fmt.Fprintf(&b, "steps:       %s\n", strings.Join(names, ", "))
	}
	if len(m.Credentials) > 0 {
		fmt.Fprintf(&b, "credentials: %d binding(s)\n", len(m.Credentials))
	}
	return b.String()
}
