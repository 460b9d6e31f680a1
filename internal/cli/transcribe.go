package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mgpai22/scribe/internal/audio"
	"github.com/mgpai22/scribe/internal/pipeline"
	"github.com/spf13/cobra"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe [audio_file]",
	Short: "Transcribe an audio file into SubRip subtitles",
	Long: `Transcribe an audio file with the configured recognizer and store the
result as <name>.srt in the subtitle directory.

Accepted inputs: mp3, wav, ogg, m4a, mp4. Audio is compressed to mono
16 kHz mp3 with ffmpeg before upload unless --no-prepare is given.
The source file is consumed: it is deleted once the subtitles are
written, unless --keep-audio is given.

Examples:
  scribe transcribe talk.mp3
  scribe transcribe lecture.mp4 --provider gemini -l en
  scribe transcribe memo.m4a --keep-audio --subtitle-dir ./subs`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscribe,
}

func init() {
	rootCmd.AddCommand(transcribeCmd)

	transcribeCmd.Flags().
		Bool("keep-audio", false, "Keep the source file after a successful job")
	transcribeCmd.Flags().
		Bool("no-prepare", false, "Send the file as is, skipping ffmpeg compression")
	transcribeCmd.Flags().
		String("prompt", "", "Context hint passed to the recognizer")
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	audioPath := args[0]

	if _, err := os.Stat(audioPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", audioPath)
	}
	if !audio.Allowed(audioPath) {
		return fmt.Errorf("unsupported file type: %s (allowed: %v)", filepath.Ext(audioPath), audio.AllowedExtensions)
	}

	keepAudio, _ := cmd.Flags().GetBool("keep-audio")
	noPrepare, _ := cmd.Flags().GetBool("no-prepare")
	prompt, _ := cmd.Flags().GetString("prompt")

	ctx := cmd.Context()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	recognizer, err := loadRecognizer(ctx, prompt)
	if err != nil {
		return err
	}

	logger.Infow("Starting transcription",
		"input", audioPath,
		"provider", recognizer.Name(),
		"model", cfg.Model,
		"language", cfg.Language,
	)

	p := pipeline.New(recognizer, preparer(noPrepare), subtitleStore(), logger,
		pipeline.Options{KeepAudio: keepAudio})

	result, err := p.Transcribe(ctx, audioPath)
	if err != nil {
		return fmt.Errorf("transcription failed: %w", err)
	}

	out := cmd.OutOrStdout()
	absOutput, _ := filepath.Abs(result.SubtitlePath)
	fmt.Fprintf(out, "Subtitles generated successfully: %s\n", absOutput)
	fmt.Fprintf(out, "  Segments: %d\n", len(result.Segments))
	if result.Language != "" {
		fmt.Fprintf(out, "  Language: %s\n", result.Language)
	}
	if result.Duration > 0 {
		fmt.Fprintf(out, "  Duration: %s\n", result.Duration.Round(100*time.Millisecond))
	}
	fmt.Fprintf(out, "\n%s\n", result.Transcript)

	return nil
}
