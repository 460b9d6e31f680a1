package cli

import (
	"context"

	"github.com/mgpai22/scribe/internal/audio"
	"github.com/mgpai22/scribe/internal/config"
	"github.com/mgpai22/scribe/internal/logging"
	"github.com/mgpai22/scribe/internal/store"
	"github.com/mgpai22/scribe/internal/transcribe"
	"github.com/spf13/cobra"
)

var (
	verbose   bool
	overrides config.Overrides
	cfg       *config.Config
	logger    *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "scribe",
	Short: "Speech-to-subtitle transcription service",
	Long: `Scribe transcribes audio files with a hosted speech recognizer and
stores the result as SubRip subtitles with per-segment timing.

It runs one-off jobs from the command line or serves the same pipeline
over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(overrides)
		if err != nil {
			return err
		}
		cfg = c

		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		logger = logging.New(logging.Options{Level: level, Format: cfg.LogFormat})
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	flags.StringVar(&overrides.EnvFile, "env-file", "", "Path to a .env file (default .env)")
	flags.StringVar(&overrides.SubtitleDir, "subtitle-dir", "", "Directory holding subtitle documents")
	flags.StringVar(&overrides.Provider, "provider", "", "Recognition provider (openai, gemini)")
	flags.StringVarP(&overrides.Language, "language", "l", "", "Language code (e.g., en, es, fr)")
	flags.StringVar(&overrides.Model, "model", "", "Recognition model (provider-specific default)")
}

func subtitleStore() *store.Store {
	return store.New(cfg.SubtitleDir)
}

func loadRecognizer(ctx context.Context, prompt string) (transcribe.Recognizer, error) {
	return transcribe.Load(ctx, transcribe.Provider(cfg.Provider), cfg.APIKey(), transcribe.Options{
		Language: cfg.Language,
		Model:    cfg.Model,
		Prompt:   prompt,
		BaseURL:  cfg.OpenAIBaseURL,
	})
}

func preparer(disabled bool) audio.Preparer {
	if disabled || !cfg.PrepareAudio {
		return audio.Passthrough{}
	}
	return audio.NewFFmpegPreparer("")
}
