package subtitle

import (
	"fmt"
)

// represents single subtitle segment, times in seconds
type Segment struct {
	Index int     `json:"-"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// subtitle file extension written by the serializer
const Extension = ".srt"

// separator between the two timecodes of a block
const rangeSeparator = " --> "

// FormatError reports a malformed timecode or subtitle document.
type FormatError struct {
	Value  string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Value == "" {
		return "subtitle format: " + e.Reason
	}
	return fmt.Sprintf("subtitle format: %s: %q", e.Reason, e.Value)
}

func formatErrorf(value, reason string, args ...any) *FormatError {
	return &FormatError{Value: value, Reason: fmt.Sprintf(reason, args...)}
}

// interface for writing subtitles to files
type Writer interface {
	Write(segments []Segment, path string) error
}
