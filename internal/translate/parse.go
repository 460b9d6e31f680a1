package translate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var jsonFenceRegex = regexp.MustCompile("```(?:json)?\\s*")

// parseReply extracts one result per input item, in input order.
func parseReply(reply string, items []TranslationItem) ([]TranslationResult, error) {
	text := cleanJSONResponse(reply)
	if text == "" {
		return nil, fmt.Errorf("no text in response")
	}

	results, err := extractTranslationResults(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w (response: %s)", err, truncateString(text, 200))
	}

	if len(results) != len(items) {
		return nil, fmt.Errorf("expected %d results, got %d", len(items), len(results))
	}

	byIndex := make(map[int]string, len(results))
	for _, r := range results {
		byIndex[r.Index] = r.Text
	}
	ordered := make([]TranslationResult, len(items))
	for i, item := range items {
		text, ok := byIndex[item.Index]
		if !ok {
			return nil, fmt.Errorf("missing translation for index %d", item.Index)
		}
		ordered[i] = TranslationResult{Index: item.Index, Text: text}
	}
	return ordered, nil
}

func cleanJSONResponse(s string) string {
	s = jsonFenceRegex.ReplaceAllString(strings.TrimSpace(s), "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// fixInvalidEscapes doubles the backslash of escapes JSON does not know
// (e.g. a literal \N), so the text survives decoding unchanged.
func fixInvalidEscapes(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			result.WriteByte(s[i])
			continue
		}
		next := s[i+1]
		switch next {
		case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
			result.WriteByte('\\')
		default:
			result.WriteString("\\\\")
		}
		result.WriteByte(next)
		i++
	}

	return result.String()
}

func extractTranslationResults(text string) ([]TranslationResult, error) {
	text = fixInvalidEscapes(text)

	for i := 0; i < len(text); i++ {
		if text[i] != '[' && text[i] != '{' {
			continue
		}
		decoder := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			continue
		}
		if results, ok := tryExtractResults(raw); ok {
			return results, nil
		}
		i += int(decoder.InputOffset()) - 1
	}
	return nil, fmt.Errorf("no valid translation JSON found in response")
}

func tryExtractResults(raw json.RawMessage) ([]TranslationResult, bool) {
	var results []TranslationResult
	if err := json.Unmarshal(raw, &results); err == nil && validateResults(results) {
		return results, true
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, false
	}

	for _, key := range []string{"results", "translations", "data", "items"} {
		if fieldRaw, ok := wrapper[key]; ok {
			if results, ok := tryExtractResults(fieldRaw); ok {
				return results, true
			}
		}
	}
	for _, fieldRaw := range wrapper {
		if results, ok := tryExtractResults(fieldRaw); ok {
			return results, true
		}
	}

	return nil, false
}

// validateResults reports whether any result carries text.
func validateResults(results []TranslationResult) bool {
	for _, r := range results {
		if r.Text != "" {
			return true
		}
	}
	return false
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
