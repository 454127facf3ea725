// Package nlp derives search keywords and topic rankings from free text.
// Two extractor strategies exist: a remote entity/topic analysis service
// (TextRazor) and a local linguistic parse (prose). The strategy is chosen
// once at startup; both satisfy KeywordExtractor so callers never care which
// one is behind it.
package nlp

import (
	"context"
	"strings"
)

// KeywordExtractor turns raw question text into a deduplicated list of
// search terms. A backend failure is reported as an error wrapping
// models.ErrExtraction, which is distinct from an empty result.
type KeywordExtractor interface {
	Keywords(ctx context.Context, text string) ([]string, error)
}

// TopicBackend extracts topic labels from a text blob. Implemented by the
// remote analysis client; the aggregator counts and ranks the labels.
type TopicBackend interface {
	Topics(ctx context.Context, text string) ([]string, error)
}

// JoinKeywords flattens a keyword list into the single query string the
// search backend expects. Reddit treats the whole string as one query, so
// multi-term sequences are joined rather than searched separately.
func JoinKeywords(keywords []string) string {
	return strings.Join(keywords, ", ")
}

// dedupeFold removes duplicates case-insensitively, keeping the first-seen
// casing and order.
func dedupeFold(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	unique := make([]string, 0, len(terms))
	for _, term := range terms {
		folded := strings.ToLower(term)
		if _, ok := seen[folded]; ok {
			continue
		}
		seen[folded] = struct{}{}
		unique = append(unique, term)
	}
	return unique
}

// fallbackKeywords guarantees a non-empty keyword list for non-empty input
// by falling back to the trimmed input text as the sole keyword.
func fallbackKeywords(keywords []string, text string) []string {
	if len(keywords) > 0 {
		return keywords
	}
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		return []string{trimmed}
	}
	return keywords
}
