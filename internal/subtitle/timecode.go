package subtitle

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// absorbs binary representation error so 1.001 stays 1001ms
const millisEpsilon = 1e-6

// FormatTimecode renders seconds as an SRT timecode (HH:MM:SS,mmm).
// Fractional milliseconds are truncated, never rounded up.
func FormatTimecode(seconds float64) (string, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "", formatErrorf(fmt.Sprint(seconds), "timecode must be finite")
	}
	if seconds < 0 {
		return "", formatErrorf(fmt.Sprint(seconds), "timecode must not be negative")
	}

	total := int64(math.Floor(seconds*1000 + millisEpsilon))
	hours := total / 3_600_000
	minutes := (total / 60_000) % 60
	secs := (total / 1000) % 60
	millis := total % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis), nil
}

// ParseTimecode converts an SRT timecode back to seconds.
//
// Groups are weighted by powers of 60 from the right, so "05,400",
// "02:05,400" and "01:02:05,400" are all accepted. The last group carries
// the fraction after a comma (a period is tolerated too).
func ParseTimecode(tc string) (float64, error) {
	value := strings.TrimSpace(tc)
	if value == "" {
		return 0, formatErrorf(tc, "empty timecode")
	}

	groups := strings.Split(value, ":")
	last := groups[len(groups)-1]
	if strings.Count(last, ",")+strings.Count(last, ".") > 1 {
		return 0, formatErrorf(tc, "more than one fraction separator")
	}
	groups[len(groups)-1] = strings.Replace(last, ",", ".", 1)

	var seconds float64
	weight := 1.0
	for i := len(groups) - 1; i >= 0; i-- {
		field := groups[i]
		if !isDecimal(field, i == len(groups)-1) {
			return 0, formatErrorf(tc, "non-numeric field %q", field)
		}
		n, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return 0, formatErrorf(tc, "non-numeric field %q", field)
		}
		seconds += n * weight
		weight *= 60
	}

	return seconds, nil
}

// digits only, with a single interior '.' when fraction is allowed
func isDecimal(field string, fraction bool) bool {
	if field == "" {
		return false
	}
	dot := -1
	for i, r := range field {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' && fraction && dot < 0:
			dot = i
		default:
			return false
		}
	}
	return dot != 0 && dot != len(field)-1
}
