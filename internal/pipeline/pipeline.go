// Package pipeline runs a transcription job end to end and answers timing
// queries against the stored subtitle documents.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mgpai22/scribe/internal/audio"
	"github.com/mgpai22/scribe/internal/logging"
	"github.com/mgpai22/scribe/internal/metrics"
	"github.com/mgpai22/scribe/internal/store"
	"github.com/mgpai22/scribe/internal/subtitle"
	"github.com/mgpai22/scribe/internal/transcribe"
)

// Result of one transcription job.
type Result struct {
	Identifier   string
	Transcript   string
	Segments     []subtitle.Segment
	SubtitlePath string
	Language     string
	Duration     time.Duration
}

// TimingSegment is one cue of a timing dataset.
type TimingSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TimingData is the per-segment timing of a stored document.
type TimingData struct {
	Segments []TimingSegment `json:"segments"`
	Filename string          `json:"filename"`
}

type Options struct {
	// KeepAudio disables removal of the source file after a successful job.
	KeepAudio bool
}

type Pipeline struct {
	recognizer transcribe.Recognizer
	preparer   audio.Preparer
	store      *store.Store
	logger     *logging.Logger
	opts       Options
}

// New builds a pipeline around an initialised recognizer. A nil preparer
// sends the source file as is.
func New(
	recognizer transcribe.Recognizer,
	preparer audio.Preparer,
	st *store.Store,
	logger *logging.Logger,
	opts Options,
) *Pipeline {
	if preparer == nil {
		preparer = audio.Passthrough{}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Pipeline{
		recognizer: recognizer,
		preparer:   preparer,
		store:      st,
		logger:     logger.With("component", "pipeline"),
		opts:       opts,
	}
}

func (p *Pipeline) Store() *store.Store {
	return p.store
}

// Ready reports whether the recognizer can take a job.
func (p *Pipeline) Ready(ctx context.Context) error {
	return p.recognizer.Ping(ctx)
}

// Transcribe recognizes audioPath, writes its subtitle document and removes
// the source file. On any failure the source file is left in place and no
// document is written.
func (p *Pipeline) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	provider := p.recognizer.Name()
	identifier := filepath.Base(audioPath)
	log := p.logger.With("file", identifier, "provider", provider)

	if _, ok := store.Name(identifier); !ok {
		return nil, &transcribe.RecognitionError{
			Provider: provider,
			Kind:     transcribe.KindBadInput,
			Err:      fmt.Errorf("cannot derive a subtitle name from %q", audioPath),
		}
	}

	prepared, err := p.preparer.Prepare(ctx, audioPath)
	if err != nil {
		if _, statErr := os.Stat(audioPath); statErr != nil {
			metrics.ObserveJob(provider, transcribe.KindBadInput.String(), 0, 0)
			return nil, &transcribe.RecognitionError{Provider: provider, Kind: transcribe.KindBadInput, Err: statErr}
		}
		log.Warnw("audio preparation failed, sending original file", "error", err)
		prepared = &audio.Prepared{Path: audioPath}
	}
	defer func() {
		if err := prepared.Cleanup(); err != nil {
			log.Warnw("failed to remove prepared audio", "path", prepared.Path, "error", err)
		}
	}()

	log.Infow("recognition started", "input", prepared.Path)
	start := time.Now()
	recognized, err := p.recognizer.Recognize(ctx, prepared.Path)
	elapsed := time.Since(start)
	if err != nil {
		var re *transcribe.RecognitionError
		if !errors.As(err, &re) {
			err = &transcribe.RecognitionError{Provider: provider, Kind: transcribe.KindInternal, Err: err}
		}
		kind := transcribe.KindOf(err)
		metrics.ObserveJob(provider, kind.String(), elapsed, 0)
		log.Errorw("recognition failed", "kind", kind.String(), "elapsed", elapsed, "error", err)
		return nil, err
	}

	segments := subtitle.Build(recognized.Segments)
	subtitlePath, err := p.store.Save(identifier, segments)
	if err != nil {
		metrics.ObserveJob(provider, "write_failed", elapsed, 0)
		return nil, fmt.Errorf("save subtitles: %w", err)
	}
	metrics.ObserveJob(provider, "success", elapsed, len(segments))

	if !p.opts.KeepAudio {
		if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
			log.Warnw("failed to remove source audio", "error", err)
		}
	}

	transcript := strings.TrimSpace(recognized.Text)
	if transcript == "" {
		transcript = subtitle.Transcript(segments)
	}
	duration := recognized.Duration
	if duration == 0 {
		duration = prepared.Duration
	}

	log.Infow("transcription complete",
		"segments", len(segments),
		"subtitle", subtitlePath,
		"elapsed", elapsed,
	)

	return &Result{
		Identifier:   identifier,
		Transcript:   transcript,
		Segments:     segments,
		SubtitlePath: subtitlePath,
		Language:     recognized.Language,
		Duration:     duration,
	}, nil
}

// TimingData parses the stored document for identifier. Every call reads the
// document fresh.
func (p *Pipeline) TimingData(identifier string) (*TimingData, error) {
	segments, err := p.store.Load(identifier)
	if err != nil {
		return nil, err
	}

	data := &TimingData{
		Segments: make([]TimingSegment, len(segments)),
		Filename: identifier,
	}
	for i, seg := range segments {
		data.Segments[i] = TimingSegment{Start: seg.Start, End: seg.End, Text: seg.Text}
	}
	return data, nil
}
