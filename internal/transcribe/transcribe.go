package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mgpai22/scribe/internal/subtitle"
)

// recognition result
type Result struct {
	Text     string
	Segments []subtitle.Segment
	Language string
	Duration time.Duration
}

// Recognizer turns an audio file into a transcript plus timed segments.
// Implementations are treated as non-reentrant; callers serialize access.
type Recognizer interface {
	Recognize(ctx context.Context, audioPath string) (*Result, error)
	Ping(ctx context.Context) error
	Name() string
}

// recognition service provider
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// recognition options
type Options struct {
	Language string // Source language of audio, empty for auto-detect
	Model    string
	Prompt   string
	BaseURL  string // OpenAI-compatible endpoint, e.g. a local whisper server
}

// Load builds the recognizer for provider. A failure here is reported as a
// RecognitionError of KindUnavailable wrapping ErrRecognizerUnavailable.
func Load(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Recognizer, error) {
	var (
		r   Recognizer
		err error
	)
	switch Provider(strings.ToLower(string(provider))) {
	case ProviderOpenAI:
		r, err = NewOpenAIRecognizer(apiKey, opts)
	case ProviderGemini:
		r, err = NewGeminiRecognizer(ctx, apiKey, opts)
	default:
		err = fmt.Errorf("unsupported provider: %s", provider)
	}
	if err != nil {
		return nil, &RecognitionError{
			Provider: string(provider),
			Kind:     KindUnavailable,
			Err:      fmt.Errorf("%w: %w", ErrRecognizerUnavailable, err),
		}
	}
	return r, nil
}

// Unavailable is a Recognizer standing in for one that failed to load. Every
// call reports the load failure.
type Unavailable struct {
	Provider string
	Err      error
}

func (u *Unavailable) Recognize(ctx context.Context, audioPath string) (*Result, error) {
	return nil, u.err()
}

func (u *Unavailable) Ping(ctx context.Context) error {
	return u.err()
}

func (u *Unavailable) Name() string {
	return u.Provider
}

func (u *Unavailable) err() error {
	var re *RecognitionError
	if errors.As(u.Err, &re) {
		return re
	}
	if u.Err == nil {
		return &RecognitionError{Provider: u.Provider, Kind: KindUnavailable, Err: fmt.Errorf("%w: not loaded", ErrRecognizerUnavailable)}
	}
	return &RecognitionError{Provider: u.Provider, Kind: KindUnavailable, Err: fmt.Errorf("%w: %v", ErrRecognizerUnavailable, u.Err)}
}

// segmentsFromText is the fallback when a provider returns text without timing.
func segmentsFromText(text string, duration time.Duration) []subtitle.Segment {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	end := duration.Seconds()
	if end <= 0 {
		end = 1
	}
	return []subtitle.Segment{{Start: 0, End: end, Text: text}}
}
