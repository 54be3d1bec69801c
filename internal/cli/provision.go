package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/devplug/pkg/core"
	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/manifest"
	"github.com/arthur-debert/devplug/pkg/summary"
	"github.com/arthur-debert/devplug/pkg/types"
)

// problemsOf returns the manifest problems carried by a validation error.
func problemsOf(err error) []string {
	if !errors.IsErrorCode(err, errors.ErrConfigValid) {
		return nil
	}
	return manifest.ProblemsFromError(err)
}

// renderRun renders a summary and turns its failures into the command
// error, so the process exits non-zero.
func renderRun(s *session, run *summary.RunSummary) error {
	if err := s.renderer.RenderSummary(run); err != nil {
		return err
	}
	return run.Err()
}

func newInstallCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "install [steps...]",
		Short:   MsgInstallShort,
		Long:    MsgInstallLong,
		Example: MsgInstallExample,
		GroupID: "provision",
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			s, err := g.session(cmd)
			if err != nil {
				return nil, cobra.ShellCompDirectiveError
			}
			steps, err := s.app.Steps()
			if err != nil {
				return nil, cobra.ShellCompDirectiveError
			}
			ids := make([]string, 0, len(steps))
			for _, st := range steps {
				ids = append(ids, st.ID())
			}
			return ids, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.session(cmd)
			if err != nil {
				return err
			}
			run, err := s.app.Provision(cmd.Context(), args...)
			if err != nil {
				return err
			}
			return renderRun(s, run)
		},
	}
}

func newMountsCmd(g *globals) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:     "mounts",
		Short:   MsgMountsShort,
		Long:    MsgMountsLong,
		GroupID: "provision",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.session(cmd)
			if err != nil {
				return err
			}
			res, err := s.app.GenerateMounts(cmd.Context())
			if err != nil {
				return err
			}
			if err := renderMounts(s, res); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			_ = s.renderer.RenderMessage(MsgWatching)
			return s.app.WatchMounts(cmd.Context(), func(res *core.MountsResult, err error) {
				if err != nil {
					_ = s.renderer.RenderError(err)
					return
				}
				_ = renderMounts(s, res)
			})
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, MsgFlagWatch)
	return cmd
}

func renderMounts(s *session, res *core.MountsResult) error {
	if err := s.renderer.RenderMounts(res.Mounts, res.Symlinks, res.Warnings); err != nil {
		return err
	}
	if s.cfg.General.DryRun {
		return s.renderer.RenderMessage(fmt.Sprintf(MsgOverrideDryRun, res.OverridePath))
	}
	return s.renderer.RenderMessage(fmt.Sprintf(MsgOverrideWritten, res.OverridePath))
}

func newHooksCmd(g *globals) *cobra.Command {
	phases := make([]string, 0, len(types.AllPhases()))
	for _, p := range types.AllPhases() {
		phases = append(phases, string(p))
	}
	return &cobra.Command{
		Use:       "hooks <phase>",
		Short:     MsgHooksShort,
		Long:      MsgHooksLong,
		GroupID:   "provision",
		Args:      cobra.ExactArgs(1),
		ValidArgs: phases,
		RunE: func(cmd *cobra.Command, args []string) error {
			phase, err := types.ParsePhase(args[0])
			if err != nil {
				return errors.Wrap(err, errors.ErrInvalidInput, "invalid phase")
			}
			s, err := g.session(cmd)
			if err != nil {
				return err
			}
			run, err := s.app.RunHooks(cmd.Context(), phase)
			if err != nil {
				return err
			}
			return renderRun(s, run)
		},
	}
}

func newEnvCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "env",
		Short:   MsgEnvShort,
		Example: MsgEnvExample,
		GroupID: "provision",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.session(cmd)
			if err != nil {
				return err
			}
			exports, warnings, err := s.app.Env(cmd.Context())
			if err != nil {
				return err
			}
			// warnings go to stderr so stdout stays eval-safe
			for _, w := range warnings {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "devplug: warning: %s\n", w)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), exports)
			return err
		},
	}
}

func newContainerStartupCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "container-startup",
		Short:   MsgStartupShort,
		Long:    MsgStartupLong,
		GroupID: "provision",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.session(cmd)
			if err != nil {
				return err
			}
			run, err := s.app.ContainerStartup(cmd.Context())
			if err != nil {
				return err
			}
			return renderRun(s, run)
		},
	}
}
