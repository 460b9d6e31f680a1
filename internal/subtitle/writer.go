package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SubRip format
type SRTWriter struct{}

func NewWriter() *SRTWriter {
	return &SRTWriter{}
}

// Serialize renders segments as a SubRip document.
//
// Blocks are numbered by position (1..n); Segment.Index is ignored so that
// recognition output carrying 0-based or duplicate ids still produces a
// consistent document. Text is trimmed but embedded newlines are kept.
func Serialize(segments []Segment) (string, error) {
	var sb strings.Builder
	for i, seg := range segments {
		start, err := FormatTimecode(seg.Start)
		if err != nil {
			return "", fmt.Errorf("segment %d start: %w", i+1, err)
		}
		end, err := FormatTimecode(seg.End)
		if err != nil {
			return "", fmt.Errorf("segment %d end: %w", i+1, err)
		}

		// index (1-based)
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteByte('\n')

		// timestamps: 00:00:00,000 --> 00:00:00,000
		sb.WriteString(start)
		sb.WriteString(rangeSeparator)
		sb.WriteString(end)
		sb.WriteByte('\n')

		// text
		sb.WriteString(strings.TrimSpace(seg.Text))
		sb.WriteString("\n\n")
	}
	return sb.String(), nil
}

// writes the segments to an SRT file
//
// The document is written to a temporary file next to path and renamed into
// place, so readers never observe a partially written file.
func (w *SRTWriter) Write(segments []Segment, path string) error {
	doc, err := Serialize(segments)
	if err != nil {
		return err
	}
	if err := ensureDir(path); err != nil {
		return fmt.Errorf("failed to create subtitle directory: %w", err)
	}
	return writeFileAtomic(path, []byte(doc))
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write subtitles: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close subtitles: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to chmod subtitles: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to move subtitles into place: %w", err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0755)
}
