package cli

import (
	"github.com/spf13/cobra"
)

func newBuildCmd(g *globals) *cobra.Command {
	var noCache bool
	cmd := &cobra.Command{
		Use:     "build",
		Short:   MsgBuildShort,
		Long:    MsgBuildLong,
		GroupID: "container",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.session(cmd)
			if err != nil {
				return err
			}
			run, err := s.app.Build(cmd.Context(), noCache)
			if err != nil {
				return err
			}
			return renderRun(s, run)
		},
	}
	cmd.Flags().BoolVar(&noCache, "no-cache", false, MsgFlagNoCache)
	return cmd
}

func newUpCmd(g *globals) *cobra.Command {
	var detach bool
	cmd := &cobra.Command{
		Use:     "up",
		Short:   MsgUpShort,
		Long:    MsgUpLong,
		GroupID: "container",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.session(cmd)
			if err != nil {
				return err
			}
			run, err := s.app.Up(cmd.Context(), detach)
			if err != nil {
				return err
			}
			return renderRun(s, run)
		},
	}
	cmd.Flags().BoolVarP(&detach, "detach", "d", false, MsgFlagDetach)
	return cmd
}

func newDownCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "down",
		Short:   MsgDownShort,
		GroupID: "container",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.session(cmd)
			if err != nil {
				return err
			}
			return s.app.Down(cmd.Context())
		},
	}
}

func newAttachCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "attach",
		Aliases: []string{"shell"},
		Short:   MsgAttachShort,
		GroupID: "container",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.session(cmd)
			if err != nil {
				return err
			}
			return s.app.Attach(cmd.Context())
		},
	}
}
