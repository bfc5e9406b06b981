package rerank

import (
	"context"
	"math"
	"strings"
	"unicode"

	"studyrag-be/pkg/rag"
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "to": {}, "in": {}, "on": {}, "and": {}, "or": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "what": {}, "how": {}, "why": {}, "which": {},
	"for": {}, "with": {}, "by": {}, "it": {}, "this": {}, "that": {}, "do": {}, "does": {},
}

// Lightweight scores fragments in-process by query-term coverage. Fragments
// below MinScore are dropped.
type Lightweight struct {
	MinScore float64
}

func NewLightweight(minScore float64) *Lightweight {
	return &Lightweight{MinScore: minScore}
}

func (*Lightweight) Name() string { return "lightweight" }

func (l *Lightweight) Rerank(ctx context.Context, query string, frags []rag.Fragment, topK int) ([]rag.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	terms := uniqueTerms(query)
	scores := make([]scored, 0, len(frags))
	for i, f := range frags {
		s := overlapScore(terms, f.Content)
		if s < l.MinScore {
			continue
		}
		scores = append(scores, scored{index: i, score: s})
	}
	return selectTop(frags, scores, topK), nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func uniqueTerms(text string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, tok := range tokenize(text) {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// overlapScore is coverage of query terms in [0,1] plus a small, length
// normalized frequency bonus.
func overlapScore(terms []string, content string) float64 {
	if len(terms) == 0 {
		return 0
	}
	toks := tokenize(content)
	if len(toks) == 0 {
		return 0
	}
	freq := make(map[string]int, len(toks))
	for _, tok := range toks {
		freq[tok]++
	}
	matched, hits := 0, 0
	for _, term := range terms {
		if c := freq[term]; c > 0 {
			matched++
			hits += c
		}
	}
	coverage := float64(matched) / float64(len(terms))
	density := float64(hits) / math.Sqrt(float64(len(toks)))
	return coverage + 0.1*math.Min(density, 1)
}
