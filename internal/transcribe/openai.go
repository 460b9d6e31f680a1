package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/mgpai22/scribe/internal/subtitle"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// implements Recognizer using the OpenAI audio API or any server that speaks it
type OpenAIRecognizer struct {
	client  openai.Client
	model   string
	options Options
}

// segment from OpenAI Whisper verbose_json response
type whisperSegment struct {
	ID    *int    `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// verbose_json response structure from Whisper
type whisperVerboseResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
}

func NewOpenAIRecognizer(
	apiKey string,
	opts Options,
	reqOpts ...option.RequestOption,
) (*OpenAIRecognizer, error) {
	// local whisper servers usually ignore the key
	if apiKey == "" && opts.BaseURL == "" {
		return nil, fmt.Errorf("API key is required")
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	clientOpts = append(clientOpts, reqOpts...)

	model := opts.Model
	if model == "" {
		model = "whisper-1"
	}

	return &OpenAIRecognizer{
		client:  openai.NewClient(clientOpts...),
		model:   model,
		options: opts,
	}, nil
}

func (r *OpenAIRecognizer) Name() string {
	return string(ProviderOpenAI)
}

// Ping checks that the endpoint is reachable and knows the configured model.
func (r *OpenAIRecognizer) Ping(ctx context.Context) error {
	if _, err := r.client.Models.Get(ctx, r.model); err != nil {
		return classify(r.Name(), fmt.Errorf("model %s: %w", r.model, err))
	}
	return nil
}

// Recognize transcribes a single audio file with segment timestamps.
func (r *OpenAIRecognizer) Recognize(
	ctx context.Context,
	audioPath string,
) (*Result, error) {
	file, err := os.Open(audioPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, badInput(r.Name(), fmt.Errorf("audio file not found: %s", audioPath))
	}
	if err != nil {
		return nil, badInput(r.Name(), fmt.Errorf("failed to open audio file: %w", err))
	}
	defer file.Close()

	params := openai.AudioTranscriptionNewParams{
		File:                   file,
		Model:                  openai.AudioModel(r.model),
		ResponseFormat:         openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"segment"},
	}

	if r.options.Language != "" {
		params.Language = openai.String(r.options.Language)
	}

	if r.options.Prompt != "" {
		params.Prompt = openai.String(r.options.Prompt)
	}

	resp, err := r.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, classify(r.Name(), fmt.Errorf("transcription failed: %w", err))
	}

	result, err := parseVerboseJSONResponse(resp.RawJSON())
	if err != nil {
		// some compatible servers answer with plain json {"text": ...}
		segments := segmentsFromText(resp.Text, 0)
		if len(segments) == 0 {
			return nil, internal(r.Name(), err)
		}
		return &Result{
			Text:     strings.TrimSpace(resp.Text),
			Segments: segments,
			Language: r.options.Language,
		}, nil
	}

	if result.Language == "" {
		result.Language = r.options.Language
	}
	return result, nil
}

func parseVerboseJSONResponse(rawJSON string) (*Result, error) {
	if rawJSON == "" {
		return nil, fmt.Errorf("empty response")
	}

	var verboseResp whisperVerboseResponse
	if err := json.Unmarshal([]byte(rawJSON), &verboseResp); err != nil {
		return nil, fmt.Errorf("failed to parse verbose_json response: %w", err)
	}

	duration := time.Duration(verboseResp.Duration * float64(time.Second))
	text := strings.TrimSpace(verboseResp.Text)

	if len(verboseResp.Segments) == 0 {
		if text == "" {
			return nil, fmt.Errorf("no segments or text in response")
		}
		return &Result{
			Text:     text,
			Segments: segmentsFromText(text, duration),
			Language: verboseResp.Language,
			Duration: duration,
		}, nil
	}

	segments := make([]subtitle.Segment, 0, len(verboseResp.Segments))
	for i, seg := range verboseResp.Segments {
		id := i
		if seg.ID != nil {
			id = *seg.ID
		}
		segments = append(segments, subtitle.Segment{
			Index: id,
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}

	if text == "" {
		text = subtitle.Transcript(segments)
	}

	return &Result{
		Text:     text,
		Segments: segments,
		Language: verboseResp.Language,
		Duration: duration,
	}, nil
}
