package cli

import (
	"encoding/json"

	"github.com/mgpai22/scribe/internal/pipeline"
	"github.com/mgpai22/scribe/internal/transcribe"
	"github.com/spf13/cobra"
)

var timingCmd = &cobra.Command{
	Use:   "timing [filename]",
	Short: "Print the timing data of a stored subtitle document as JSON",
	Long: `Print the per-segment timing of the subtitle document derived from
filename. Either the uploaded audio name or the subtitle name works.

Examples:
  scribe timing talk.mp3
  scribe timing talk.srt --subtitle-dir ./subs`,
	Args: cobra.ExactArgs(1),
	RunE: runTiming,
}

func init() {
	rootCmd.AddCommand(timingCmd)
}

func runTiming(cmd *cobra.Command, args []string) error {
	// timing queries never reach the recognizer
	p := pipeline.New(&transcribe.Unavailable{Provider: cfg.Provider}, nil, subtitleStore(), logger, pipeline.Options{})

	data, err := p.TimingData(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
