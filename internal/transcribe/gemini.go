package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/mgpai22/scribe/internal/subtitle"
	"google.golang.org/genai"
)

// implements Recognizer using Google Gemini
type GeminiRecognizer struct {
	client  *genai.Client
	model   string
	options Options
}

// segment from Gemini's JSON response
type transcriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

var jsonFenceRegex = regexp.MustCompile("```(?:json)?\\s*")

func NewGeminiRecognizer(ctx context.Context, apiKey string, opts Options) (*GeminiRecognizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiRecognizer{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (r *GeminiRecognizer) Name() string {
	return string(ProviderGemini)
}

func (r *GeminiRecognizer) Ping(ctx context.Context) error {
	if _, err := r.client.Models.Get(ctx, r.model, nil); err != nil {
		return classify(r.Name(), fmt.Errorf("model %s: %w", r.model, err))
	}
	return nil
}

// Recognize uploads the audio file and asks the model for a timed transcript.
func (r *GeminiRecognizer) Recognize(ctx context.Context, audioPath string) (*Result, error) {
	if _, err := os.Stat(audioPath); errors.Is(err, fs.ErrNotExist) {
		return nil, badInput(r.Name(), fmt.Errorf("audio file not found: %s", audioPath))
	}

	uploadedFile, err := r.client.Files.UploadFromPath(ctx, audioPath, nil)
	if err != nil {
		return nil, classify(r.Name(), fmt.Errorf("failed to upload audio file: %w", err))
	}

	defer func() {
		_, _ = r.client.Files.Delete(context.WithoutCancel(ctx), uploadedFile.Name, nil)
	}()

	parts := []*genai.Part{
		genai.NewPartFromText(r.buildTranscriptionPrompt()),
		genai.NewPartFromURI(uploadedFile.URI, uploadedFile.MIMEType),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	resp, err := r.client.Models.GenerateContent(ctx, r.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, classify(r.Name(), fmt.Errorf("transcription failed: %w", err))
	}

	segments, err := parseTranscriptionResponse(resp)
	if err != nil {
		return nil, internal(r.Name(), fmt.Errorf("failed to parse transcription: %w", err))
	}

	return &Result{
		Text:     subtitle.Transcript(segments),
		Segments: segments,
		Language: r.options.Language,
	}, nil
}

// creates the prompt for transcription
func (r *GeminiRecognizer) buildTranscriptionPrompt() string {
	var sb strings.Builder

	sb.WriteString("Generate a detailed transcript of this audio. ")
	sb.WriteString("For each sentence or phrase, provide the start timestamp, end timestamp, and the exact text spoken. ")
	sb.WriteString("Format your response as a JSON array with objects containing 'start', 'end', and 'text' fields, ")
	sb.WriteString("where 'start' and 'end' are timestamps in seconds (as numbers). ")

	if r.options.Language != "" {
		sb.WriteString(fmt.Sprintf("The audio is in %s. ", r.options.Language))
	}

	if r.options.Prompt != "" {
		sb.WriteString(r.options.Prompt)
		sb.WriteString(" ")
	}

	sb.WriteString("Return ONLY the JSON array, no other text or markdown formatting.")

	return sb.String()
}

// parses Gemini's response into segments
func parseTranscriptionResponse(resp *genai.GenerateContentResponse) ([]subtitle.Segment, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	var responseText strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			responseText.WriteString(part.Text)
		}
	}

	text := cleanJSONResponse(responseText.String())
	if text == "" {
		return nil, fmt.Errorf("no text in Gemini response")
	}

	transcriptSegments, err := extractTranscriptSegments(text)
	if err != nil {
		return nil, fmt.Errorf("%w (response: %s)", err, truncateString(text, 200))
	}

	segments := make([]subtitle.Segment, len(transcriptSegments))
	for i, ts := range transcriptSegments {
		segments[i] = subtitle.Segment{
			Index: i,
			Start: ts.Start,
			End:   ts.End,
			Text:  strings.TrimSpace(ts.Text),
		}
	}

	return segments, nil
}

// extractTranscriptSegments finds the first JSON array of segments in text,
// skipping any prose around it. Arrays nested in wrapper objects are found too.
func extractTranscriptSegments(text string) ([]transcriptSegment, error) {
	for i := 0; i < len(text); i++ {
		if text[i] != '[' && text[i] != '{' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var v any
		if err := dec.Decode(&v); err != nil {
			continue
		}
		if segments, ok := findSegments(v); ok {
			return segments, nil
		}
		i += int(dec.InputOffset()) - 1
	}
	return nil, fmt.Errorf("no transcript segments found in response")
}

func findSegments(v any) ([]transcriptSegment, bool) {
	switch val := v.(type) {
	case []any:
		raw, err := json.Marshal(val)
		if err != nil {
			return nil, false
		}
		var segments []transcriptSegment
		if err := json.Unmarshal(raw, &segments); err != nil {
			return nil, false
		}
		return segments, validateSegments(segments)
	case map[string]any:
		keys := slices.Sorted(maps.Keys(val))
		for _, preferred := range []string{"data", "transcript", "segments"} {
			if _, ok := val[preferred]; ok {
				keys = append([]string{preferred}, keys...)
			}
		}
		for _, k := range keys {
			if segments, ok := findSegments(val[k]); ok {
				return segments, true
			}
		}
	}
	return nil, false
}

// validateSegments reports whether at least one segment carries any data.
func validateSegments(segments []transcriptSegment) bool {
	for _, s := range segments {
		if s.Text != "" || s.Start != 0 || s.End != 0 {
			return true
		}
	}
	return false
}

// removes markdown formatting from the response
func cleanJSONResponse(s string) string {
	s = jsonFenceRegex.ReplaceAllString(strings.TrimSpace(s), "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// truncates a string to maxLen bytes
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
