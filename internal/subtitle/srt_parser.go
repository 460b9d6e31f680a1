package subtitle

import (
	"fmt"
	"os"
	"strings"
)

// ParseFile reads and parses an SRT document from disk.
func ParseFile(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read SRT file: %w", err)
	}
	return Parse(string(data))
}

// Parse reconstructs segments from an SRT document.
//
// Blocks are separated by a blank line. A block needs a sequence line, a
// timing line and at least one text line; shorter blocks and blocks whose
// timing line has no " --> " separator are skipped. A timing line that does
// have the separator but carries a malformed timecode fails the whole parse.
//
// Text lines are joined with a single space, so multi-line cues come back as
// one line. The sequence number is not kept.
func Parse(text string) ([]Segment, error) {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)
	if text == "" {
		return []Segment{}, nil
	}

	blocks := strings.Split(text, "\n\n")
	segments := make([]Segment, 0, len(blocks))

	for n, block := range blocks {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 3 {
			continue
		}

		bounds := strings.Split(lines[1], rangeSeparator)
		if len(bounds) != 2 {
			continue
		}

		start, err := ParseTimecode(bounds[0])
		if err != nil {
			return nil, fmt.Errorf("block %d: invalid start timestamp: %w", n+1, err)
		}
		end, err := ParseTimecode(bounds[1])
		if err != nil {
			return nil, fmt.Errorf("block %d: invalid end timestamp: %w", n+1, err)
		}

		segments = append(segments, Segment{
			Start: start,
			End:   end,
			Text:  strings.Join(lines[2:], " "),
		})
	}

	return segments, nil
}
