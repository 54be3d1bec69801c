package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/devplug/internal/version"
	"github.com/arthur-debert/devplug/pkg/config"
	"github.com/arthur-debert/devplug/pkg/errors"
)

func newStatusCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   MsgStatusShort,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.session(cmd)
			if err != nil {
				return err
			}
			run, err := s.app.LastRun()
			if err != nil {
				if errors.IsErrorCode(err, errors.ErrNotFound) {
					return s.renderer.RenderMessage(MsgNoRunYet)
				}
				return err
			}
			// the last run's failures are history, not this command's
			return s.renderer.RenderSummary(run)
		},
	}
}

func newGenConfigCmd(g *globals) *cobra.Command {
	var effective, write bool
	cmd := &cobra.Command{
		Use:     "genconfig",
		Short:   MsgGenConfigShort,
		Long:    MsgGenConfigLong,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.session(cmd)
			if err != nil {
				return err
			}

			content := config.GenerateConfigContent()
			if effective {
				if content, err = config.MarshalEffective(s.cfg); err != nil {
					return err
				}
			}

			if !write {
				_, err := fmt.Fprint(cmd.OutOrStdout(), content)
				return err
			}

			dest := s.paths.RepoConfigPath()
			if _, err := os.Stat(dest); err == nil {
				return errors.Newf(errors.ErrAlreadyExists, "%s already exists", dest).WithDetail("path", dest)
			}
			if s.cfg.General.DryRun {
				return s.renderer.RenderMessage("Dry run: would write " + dest)
			}
			if err := os.WriteFile(dest, []byte(content), 0644); err != nil {
				return errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", dest)
			}
			return s.renderer.RenderMessage(fmt.Sprintf(MsgWroteConfig, dest))
		},
	}
	cmd.Flags().BoolVar(&effective, "effective", false, MsgFlagEffective)
	cmd.Flags().BoolVarP(&write, "write", "w", false, MsgFlagWrite)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   MsgVersionShort,
		Long:    "Print detailed version information including commit hash and build date",
		GroupID: "misc",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "devplug version %s\n", version.Version)
			if version.Commit != "" {
				_, _ = fmt.Fprintf(out, "Commit: %s\n", version.Commit)
			}
			if version.Date != "" {
				_, _ = fmt.Fprintf(out, "Built:  %s\n", version.Date)
			}
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: MsgCompletionShort,
		Long: `To load completions:

Bash:
  $ source <(devplug completion bash)

Zsh:
  $ devplug completion zsh > "${fpath[1]}/_devplug"

Fish:
  $ devplug completion fish | source

PowerShell:
  PS> devplug completion powershell | Out-String | Invoke-Expression
`,
		GroupID:               "misc",
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}
