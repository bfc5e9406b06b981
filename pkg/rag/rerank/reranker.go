package rerank

import (
	"context"
	"sort"

	"studyrag-be/pkg/rag"
)

// Reranker reorders fragments by relevance to query. Output is a subsequence
// of the input, at most topK long.
type Reranker interface {
	Name() string
	Rerank(ctx context.Context, query string, frags []rag.Fragment, topK int) ([]rag.Fragment, error)
}

// Disabled keeps fusion order and truncates.
type Disabled struct{}

func (Disabled) Name() string { return "disabled" }

func (Disabled) Rerank(_ context.Context, _ string, frags []rag.Fragment, topK int) ([]rag.Fragment, error) {
	return truncate(frags, topK), nil
}

func truncate(frags []rag.Fragment, topK int) []rag.Fragment {
	if topK < 0 {
		topK = 0
	}
	if len(frags) > topK {
		frags = frags[:topK]
	}
	out := make([]rag.Fragment, len(frags))
	copy(out, frags)
	return out
}

type scored struct {
	index int
	score float64
}

// selectTop sorts by score descending, ties by input position, and returns
// at most topK copies carrying their rerank score.
func selectTop(frags []rag.Fragment, scores []scored, topK int) []rag.Fragment {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].index < scores[j].index
	})
	if topK < 0 {
		topK = 0
	}
	if len(scores) > topK {
		scores = scores[:topK]
	}
	out := make([]rag.Fragment, 0, len(scores))
	for _, s := range scores {
		out = append(out, frags[s.index].WithRerankScore(s.score))
	}
	return out
}

// validScores drops out-of-range and repeated indexes reported by a provider.
func validScores(n int, in []scored) []scored {
	seen := make(map[int]struct{}, len(in))
	out := make([]scored, 0, len(in))
	for _, s := range in {
		if s.index < 0 || s.index >= n {
			continue
		}
		if _, dup := seen[s.index]; dup {
			continue
		}
		seen[s.index] = struct{}{}
		out = append(out, s)
	}
	return out
}

func texts(frags []rag.Fragment) []string {
	out := make([]string, len(frags))
	for i, f := range frags {
		out[i] = f.Content
	}
	return out
}
