// Package cli implements the devplug command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/arthur-debert/devplug/internal/version"
	"github.com/arthur-debert/devplug/pkg/config"
	"github.com/arthur-debert/devplug/pkg/core"
	"github.com/arthur-debert/devplug/pkg/executor"
	"github.com/arthur-debert/devplug/pkg/logging"
	"github.com/arthur-debert/devplug/pkg/paths"
	"github.com/arthur-debert/devplug/pkg/ui"
	"github.com/arthur-debert/devplug/pkg/ui/styles"
)

// globals holds the persistent flags and the injectable collaborators.
type globals struct {
	verbosity  int
	configFile string
	repoRoot   string

	runner      executor.Runner
	interactive func() bool
}

// session is everything a command needs once flags are parsed.
type session struct {
	paths    *paths.Paths
	cfg      config.Config
	app      *core.App
	format   ui.Format
	renderer ui.Renderer
}

func (g *globals) session(cmd *cobra.Command) (*session, error) {
	p, err := paths.New(g.repoRoot)
	if err != nil {
		return nil, err
	}
	if p.UsedFallback() {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), MsgFallbackWarning, p.RepoRoot())
	}

	cfg, err := config.Load(config.LoadOptions{
		Paths:      p,
		ConfigFile: g.configFile,
		Flags:      cmd.Flags(),
		Verbosity:  g.verbosity,
	})
	if err != nil {
		return nil, err
	}

	format, err := ui.ParseFormat(cfg.General.Output)
	if err != nil {
		return nil, err
	}
	format = format.Resolve(cmd.OutOrStdout())
	renderer, err := ui.NewRenderer(format, cmd.OutOrStdout())
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("repo_root", cfg.Runtime.RepoRoot).
		Str("output", format.String()).
		Bool("dry_run", cfg.General.DryRun).
		Bool("fail_fast", cfg.General.FailFast).
		Msg("Configuration loaded")

	return &session{
		paths:    p,
		cfg:      cfg,
		app:      core.New(cfg, p, g.runner, cmd.OutOrStdout(), cmd.ErrOrStderr()),
		format:   format,
		renderer: renderer,
	}, nil
}

// NewRootCmd creates the devplug command tree running real processes.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&globals{})
}

func newRootCmd(g *globals) *cobra.Command {
	initTemplateFormatting()

	if g.runner == nil {
		g.runner = executor.NewExecRunner()
	}
	if g.interactive == nil {
		g.interactive = func() bool {
			return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
		}
	}

	rootCmd := &cobra.Command{
		Use:     "devplug",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(g.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return fmt.Errorf("no command specified")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		DisableAutoGenTag: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.CountVarP(&g.verbosity, "verbose", "v", MsgFlagVerbose)
	flags.Bool("dry-run", false, MsgFlagDryRun)
	flags.Bool("fail-fast", false, MsgFlagFailFast)
	flags.StringP("output", "o", "auto", MsgFlagOutput)
	flags.StringVar(&g.repoRoot, "repo-root", "", MsgFlagRepoRoot)
	flags.String("plugin-root", "", MsgFlagPluginRoot)
	flags.StringVar(&g.configFile, "config", "", MsgFlagConfig)
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return ui.FormatNames(), cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddGroup(
		&cobra.Group{ID: "plugins", Title: "PLUGINS:"},
		&cobra.Group{ID: "provision", Title: "PROVISIONING:"},
		&cobra.Group{ID: "container", Title: "CONTAINER:"},
		&cobra.Group{ID: "misc", Title: "MISC:"},
	)
	rootCmd.SetUsageTemplate(usageTemplate)

	rootCmd.AddCommand(
		newRegisterCmd(g),
		newUnregisterCmd(g),
		newEnableCmd(g, true),
		newEnableCmd(g, false),
		newListCmd(g),
		newValidateCmd(g),
		newInfoCmd(g),

		newInstallCmd(g),
		newMountsCmd(g),
		newHooksCmd(g),
		newEnvCmd(g),
		newContainerStartupCmd(g),

		newBuildCmd(g),
		newUpCmd(g),
		newDownCmd(g),
		newAttachCmd(g),

		newStatusCmd(g),
		newGenConfigCmd(g),
		newVersionCmd(),
		newCompletionCmd(),
	)

	initTopics(rootCmd)
	return rootCmd
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		return 1
	}
	return 0
}

func printError(w io.Writer, err error) {
	errorStyle := styles.Get("Error")
	_, _ = fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("Error: %v", err)))
}
