package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mgpai22/scribe/internal/translate"
	"github.com/spf13/cobra"
)

var translateCmd = &cobra.Command{
	Use:   "translate [filename]",
	Short: "Translate a stored subtitle document to another language using AI",
	Long: `Translate the stored subtitle document derived from filename and store
the result as <name>.<lang>.srt next to it. Timings are kept; only the
text is translated.

Examples:
  scribe translate talk.mp3 --target-language ja
  scribe translate talk.srt -t es --translate-provider anthropic
  scribe translate talk.mp3 -t de -l en --batch-size 20`,
	Args: cobra.ExactArgs(1),
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().
		StringP("target-language", "t", "", "Target language for translation (required)")
	translateCmd.Flags().
		String("translate-provider", "gemini", "Translation provider (gemini, openai, anthropic)")
	translateCmd.Flags().
		String("translate-model", "", "Model to use for translation (provider-specific default)")
	translateCmd.Flags().
		String("instructions", "", "Additional instructions for the translator")
	translateCmd.Flags().
		Int("concurrency", translate.DefaultConcurrency, "Number of batches translated in parallel")
	translateCmd.Flags().
		Int("batch-size", translate.DefaultBatchSize, "Number of subtitle entries per API request")

	_ = translateCmd.MarkFlagRequired("target-language")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	identifier := args[0]

	targetLang, _ := cmd.Flags().GetString("target-language")
	providerStr, _ := cmd.Flags().GetString("translate-provider")
	model, _ := cmd.Flags().GetString("translate-model")
	instructions, _ := cmd.Flags().GetString("instructions")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	inputLang := cfg.Language

	if strings.TrimSpace(targetLang) == "" {
		return fmt.Errorf("target language is required")
	}
	if inputLang != "" && strings.EqualFold(strings.TrimSpace(inputLang), strings.TrimSpace(targetLang)) {
		return fmt.Errorf(
			"input language %q and target language %q cannot be the same",
			inputLang,
			targetLang,
		)
	}
	if concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", concurrency)
	}
	if batchSize <= 0 {
		return fmt.Errorf("batch-size must be positive, got %d", batchSize)
	}

	provider := translate.Provider(strings.ToLower(providerStr))
	apiKey := cfg.TranslationAPIKey(string(provider))
	if apiKey == "" {
		return fmt.Errorf("API key is required: set %s", apiKeyEnv(provider))
	}

	st := subtitleStore()
	if !st.Exists(identifier) {
		return fmt.Errorf("subtitle file not found: %s", identifier)
	}

	ctx := cmd.Context()
	translator, err := translate.Factory(ctx, provider, apiKey, translate.Options{
		InputLanguage:  inputLang,
		TargetLanguage: targetLang,
		Model:          model,
		Prompt:         instructions,
		BatchSize:      batchSize,
		Concurrency:    concurrency,
	})
	if err != nil {
		return fmt.Errorf("failed to create translator: %w", err)
	}

	logger.Infow("Starting subtitle translation",
		"input", identifier,
		"target_language", targetLang,
		"input_language", inputLang,
		"provider", provider,
		"model", model,
	)

	outputPath, err := translate.TranslateDocument(ctx, translator, string(provider), st, identifier, targetLang)
	if err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Fprintf(cmd.OutOrStdout(), "Subtitles translated successfully: %s\n", absOutput)
	fmt.Fprintf(cmd.OutOrStdout(), "  Target language: %s\n", targetLang)

	return nil
}

func apiKeyEnv(provider translate.Provider) string {
	switch provider {
	case translate.ProviderGemini:
		return "GEMINI_API_KEY"
	case translate.ProviderOpenAI:
		return "OPENAI_API_KEY"
	case translate.ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return "an API key for " + string(provider)
	}
}
