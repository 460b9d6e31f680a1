package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mgpai22/scribe/internal/audio"
	"github.com/spf13/cobra"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare [media_file]",
	Short: "Compress audio or extract it from a video the way transcribe does",
	Long: `Run the audio preparation step on its own and keep the output.

Supports multiple output formats: mp3, wav, ogg, aac.

Examples:
  scribe prepare lecture.mp4
  scribe prepare talk.wav -o talk.mp3
  scribe prepare talk.m4a --format wav --sample-rate 44100 --channels 2`,
	Args: cobra.ExactArgs(1),
	RunE: runPrepare,
}

func init() {
	rootCmd.AddCommand(prepareCmd)

	defaults := audio.DefaultCompressionOptions()
	prepareCmd.Flags().
		StringP("output", "o", "", "Output file path")
	prepareCmd.Flags().
		StringP("format", "f", defaults.Format, "Output audio format (mp3, wav, ogg, aac)")
	prepareCmd.Flags().
		IntP("sample-rate", "r", defaults.SampleRate, "Sample rate in Hz (e.g., 16000, 44100, 48000)")
	prepareCmd.Flags().
		IntP("channels", "c", defaults.Channels, "Number of audio channels (1=mono, 2=stereo)")
	prepareCmd.Flags().
		StringP("bitrate", "b", defaults.Bitrate, "Bitrate for lossy formats (e.g., 64k, 128k)")
}

func runPrepare(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	format, _ := cmd.Flags().GetString("format")
	sampleRate, _ := cmd.Flags().GetInt("sample-rate")
	channels, _ := cmd.Flags().GetInt("channels")
	bitrate, _ := cmd.Flags().GetString("bitrate")
	outputPath, _ := cmd.Flags().GetString("output")

	validFormats := map[string]bool{
		"mp3": true,
		"wav": true,
		"ogg": true,
		"aac": true,
	}
	if !validFormats[format] {
		return fmt.Errorf("invalid format %q: supported formats are mp3, wav, ogg, aac", format)
	}
	if !audio.Allowed(inputPath) {
		return fmt.Errorf("unsupported file type: %s", filepath.Ext(inputPath))
	}

	if outputPath == "" {
		outputPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".prepared." + format
	}

	logger.Infow("Preparing audio",
		"input", inputPath,
		"output", outputPath,
		"format", format,
		"sample_rate", sampleRate,
		"channels", channels,
	)

	opts := audio.CompressionOptions{
		Format:     format,
		SampleRate: sampleRate,
		Channels:   channels,
		Bitrate:    bitrate,
	}
	if err := audio.CompressAudio(cmd.Context(), inputPath, outputPath, opts); err != nil {
		return fmt.Errorf("preparation failed: %w", err)
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Fprintf(cmd.OutOrStdout(), "Audio prepared successfully: %s\n", absOutput)
	if d, err := audio.GetDuration(cmd.Context(), outputPath); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "  Duration: %s\n", d)
	}

	return nil
}
