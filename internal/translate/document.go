package translate

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/mgpai22/scribe/internal/metrics"
	"github.com/mgpai22/scribe/internal/store"
	"github.com/mgpai22/scribe/internal/subtitle"
)

var languageTagRegex = regexp.MustCompile(`[^a-z0-9-]+`)

// TranslatedName returns the identifier of the translated copy of a
// document, e.g. "talk.mp3" and "es" give "talk.es.srt".
func TranslatedName(identifier, language string) (string, error) {
	tag := strings.Trim(languageTagRegex.ReplaceAllString(strings.ToLower(language), "-"), "-")
	if tag == "" {
		return "", fmt.Errorf("invalid target language %q", language)
	}
	name, ok := store.Name(identifier)
	if !ok {
		return "", &store.NotFoundError{Identifier: identifier}
	}
	stem := strings.TrimSuffix(name, path.Ext(name))
	return stem + "." + tag + subtitle.Extension, nil
}

// TranslateDocument translates the stored document for identifier and saves
// the result next to it. Timings are copied unchanged. It returns the path
// of the translated document.
func TranslateDocument(
	ctx context.Context,
	tr Translator,
	provider string,
	st *store.Store,
	identifier string,
	language string,
) (string, error) {
	target, err := TranslatedName(identifier, language)
	if err != nil {
		return "", err
	}

	segments, err := st.Load(identifier)
	if err != nil {
		return "", err
	}

	items := make([]TranslationItem, len(segments))
	for i, seg := range segments {
		items[i] = TranslationItem{Index: i, Text: seg.Text}
	}

	results, err := tr.Translate(ctx, items)
	if err != nil {
		metrics.TranslationsTotal.WithLabelValues(provider, "failure").Inc()
		return "", err
	}
	if len(results) != len(segments) {
		metrics.TranslationsTotal.WithLabelValues(provider, "failure").Inc()
		return "", fmt.Errorf("expected %d translations, got %d", len(segments), len(results))
	}

	translated := make([]subtitle.Segment, len(segments))
	for i, r := range results {
		if r.Index < 0 || r.Index >= len(segments) {
			metrics.TranslationsTotal.WithLabelValues(provider, "failure").Inc()
			return "", fmt.Errorf("translation index %d out of range", r.Index)
		}
		seg := segments[r.Index]
		seg.Text = r.Text
		translated[i] = seg
	}

	dst, err := st.Save(target, subtitle.Build(translated))
	if err != nil {
		metrics.TranslationsTotal.WithLabelValues(provider, "failure").Inc()
		return "", fmt.Errorf("save translation: %w", err)
	}
	metrics.TranslationsTotal.WithLabelValues(provider, "success").Inc()
	return dst, nil
}
