package summarize

import (
	"fmt"
	"strings"

	"studyrag-be/pkg/tokens"
)

// Chunk is one stored piece of a source document.
type Chunk struct {
	Content  string
	Metadata map[string]any
}

const unknownGroup = "__unknown__"

var groupKeyFallbacks = map[string][]string{
	"document_id": {"document_id", "doc_id", "id", "source_id"},
	"file_name":   {"file_name", "source", "path"},
}

func groupKey(md map[string]any, by string) string {
	if by == "none" {
		return "__all__"
	}
	for _, key := range groupKeyFallbacks[by] {
		v, ok := md[key]
		if !ok || v == nil {
			continue
		}
		if s := fmt.Sprint(v); s != "" {
			return s
		}
	}
	return unknownGroup
}

// StuffedGroup is one map input: consecutive chunks of a source joined up to
// the stuffing limit.
type StuffedGroup struct {
	Key  string
	Text string
}

// GroupAndStuff buckets chunks by source, keeping first-appearance order of
// buckets and original order inside each, then packs each bucket into texts
// of at most limit tokens. A single chunk above limit becomes its own text.
func GroupAndStuff(chunks []Chunk, by string, limit int, est tokens.Estimator) []StuffedGroup {
	if len(chunks) == 0 {
		return nil
	}

	var order []string
	buckets := map[string][]string{}
	for _, c := range chunks {
		k := groupKey(c.Metadata, by)
		if _, ok := buckets[k]; !ok {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], c.Content)
	}

	var out []StuffedGroup
	for _, k := range order {
		var buf []string
		cur := 0
		for _, text := range buckets[k] {
			t := est.Count(text)
			if cur+t > limit && len(buf) > 0 {
				out = append(out, StuffedGroup{Key: k, Text: strings.Join(buf, "\n\n")})
				buf, cur = nil, 0
			}
			buf = append(buf, text)
			cur += t
		}
		if len(buf) > 0 {
			out = append(out, StuffedGroup{Key: k, Text: strings.Join(buf, "\n\n")})
		}
	}
	return out
}

// SplitForCollapse partitions items greedily into contiguous runs whose
// estimate, joined by sep, stays within ceiling. Callers must join each run
// with the same sep.
func SplitForCollapse(items []string, sep string, ceiling int, est tokens.Estimator) ([][]string, error) {
	var parts [][]string
	var cur []string
	for _, item := range items {
		cur = append(cur, item)
		if tokens.JoinCount(est, cur, sep) <= ceiling {
			continue
		}
		if len(cur) == 1 {
			return nil, fmt.Errorf("%d tokens over a ceiling of %d", est.Count(item), ceiling)
		}
		parts = append(parts, cur[:len(cur)-1])
		cur = []string{item}
		if est.Count(item) > ceiling {
			return nil, fmt.Errorf("%d tokens over a ceiling of %d", est.Count(item), ceiling)
		}
	}
	if len(cur) > 0 {
		parts = append(parts, cur)
	}
	return parts, nil
}
