package cli

import (
	"embed"
	"io/fs"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/devplug/pkg/cobrax/topics"
)

//go:embed topics/*.md
var topicFiles embed.FS

func initTopics(rootCmd *cobra.Command) {
	source, err := fs.Sub(topicFiles, "topics")
	if err != nil {
		log.Warn().Err(err).Msg("Help topics unavailable")
		return
	}

	var renderer topics.Renderer = &topics.PlainRenderer{}
	if stdoutIsTerminal() {
		renderer = topics.NewGlamourRenderer()
	}
	if _, err := topics.InitializeWithOptions(rootCmd, source, topics.Options{
		Extensions: []string{".md"},
		Renderer:   renderer,
	}); err != nil {
		log.Warn().Err(err).Msg("Help topics unavailable")
	}
}
