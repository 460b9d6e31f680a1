package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Prepared is an audio file ready for a hosted recognizer.
type Prepared struct {
	Path     string
	Duration time.Duration
	// Temporary is set when Path was created by Prepare and must be removed
	// by Cleanup.
	Temporary bool
}

// Cleanup removes a temporary prepared file.
func (p *Prepared) Cleanup() error {
	if p == nil || !p.Temporary {
		return nil
	}
	if err := os.Remove(p.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Preparer turns an uploaded media file into recognizer input.
type Preparer interface {
	Prepare(ctx context.Context, inputPath string) (*Prepared, error)
}

// Passthrough hands the input to the recognizer unchanged.
type Passthrough struct{}

func (Passthrough) Prepare(ctx context.Context, inputPath string) (*Prepared, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return nil, err
	}
	return &Prepared{Path: inputPath}, nil
}

// FFmpegPreparer compresses audio to mono 16 kHz mp3 and extracts the audio
// track from video files.
type FFmpegPreparer struct {
	TempDir string
	Options CompressionOptions
}

func NewFFmpegPreparer(tempDir string) *FFmpegPreparer {
	return &FFmpegPreparer{TempDir: tempDir, Options: DefaultCompressionOptions()}
}

func (p *FFmpegPreparer) Prepare(ctx context.Context, inputPath string) (*Prepared, error) {
	dir := p.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	out := filepath.Join(dir, fmt.Sprintf("%s.%s.%s", stem, uuid.NewString()[:8], p.format()))

	if err := CompressAudio(ctx, inputPath, out, p.Options); err != nil {
		os.Remove(out)
		return nil, err
	}

	prepared := &Prepared{Path: out, Temporary: true}
	if d, err := GetDuration(ctx, out); err == nil {
		prepared.Duration = d
	}
	return prepared, nil
}

func (p *FFmpegPreparer) format() string {
	if p.Options.Format == "" {
		return "mp3"
	}
	return p.Options.Format
}
