package nlp

import (
	"context"
	"fmt"
	"strings"

	prose "github.com/jdkato/prose/v2"

	"subsight/models"
)

// Local extracts keywords with an in-process linguistic parse instead of a
// remote analysis service: noun-phrase chunks plus named-entity spans,
// deduplicated by exact string. Order is not significant for this strategy,
// matching its coarser contract; first-seen order is kept so output is
// deterministic.
type Local struct{}

func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Keywords(ctx context.Context, text string) ([]string, error) {
	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, fmt.Errorf("%w: linguistic parse: %v", models.ErrExtraction, err)
	}

	seen := make(map[string]struct{})
	var keywords []string
	add := func(term string) {
		term = strings.TrimSpace(term)
		if term == "" {
			return
		}
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		keywords = append(keywords, term)
	}

	for _, chunk := range nounPhrases(doc.Tokens()) {
		add(chunk)
	}
	for _, entity := range doc.Entities() {
		add(entity.Text)
	}

	return fallbackKeywords(keywords, text), nil
}

// nounPhrases scans the POS-tagged token stream for runs of adjectives and
// nouns and keeps every run that contains at least one noun.
func nounPhrases(tokens []prose.Token) []string {
	var phrases []string
	var run []string
	hasNoun := false

	flush := func() {
		if hasNoun && len(run) > 0 {
			phrases = append(phrases, strings.Join(run, " "))
		}
		run = nil
		hasNoun = false
	}

	for _, token := range tokens {
		switch {
		case strings.HasPrefix(token.Tag, "NN"):
			run = append(run, token.Text)
			hasNoun = true
		case strings.HasPrefix(token.Tag, "JJ"):
			run = append(run, token.Text)
		default:
			flush()
		}
	}
	flush()

	return phrases
}
