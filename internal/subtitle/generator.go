package subtitle

import (
	"strings"
)

// Build turns recognition output into subtitle segments.
//
// Text is trimmed and segments left without text are dropped, since an empty
// cue cannot survive a parse. Remaining segments are numbered 1..n in input
// order regardless of the ids the recognizer assigned. Times are passed
// through untouched; recognizer ordering and overlaps are trusted as-is.
func Build(segments []Segment) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		out = append(out, Segment{
			Index: len(out) + 1,
			Start: seg.Start,
			End:   seg.End,
			Text:  text,
		})
	}
	return out
}

// Transcript joins segment texts into a single running transcript.
func Transcript(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
