package summarize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"studyrag-be/internal/pkg/logger"
	"studyrag-be/pkg/llm"
	"studyrag-be/pkg/llm/llmtest"
	"studyrag-be/pkg/rag"
	"studyrag-be/pkg/tokens"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// classify tells which mode and stage a prompt belongs to.
func classify(prompt string) (Mode, bool) {
	for _, m := range Modes {
		if strings.HasPrefix(prompt, m.Spec().MapInstruction) {
			return m, true
		}
		if strings.HasPrefix(prompt, m.Spec().ReduceInstruction) {
			return m, false
		}
	}
	return "", false
}

// tokensOf builds text estimated at n tokens.
func tokensOf(n int) string {
	return strings.Repeat("abcd", n)
}

func chunk(doc, content string) Chunk {
	return Chunk{Content: content, Metadata: map[string]any{"document_id": doc}}
}

func forceMapReduce() Preferences {
	return Preferences{StuffThreshold: 1}
}

func TestSummarizeEmpty(t *testing.T) {
	fake := llmtest.Static("never")
	e := NewEngine(fake, DefaultConfig(), logger.NewNopLogger())

	res, err := e.Summarize(context.Background(), nil, Preferences{})
	require.NoError(t, err)
	assert.Equal(t, "", res.Short)
	assert.Equal(t, "", res.Long)
	assert.Equal(t, "", res.KeyConcepts)
	assert.Equal(t, PathEmpty, res.Stats.Path)
	assert.Equal(t, 0, fake.CallCount())
}

func TestSummarizeStuffPath(t *testing.T) {
	fake := &llmtest.Fake{Respond: func(_ context.Context, prompt string, opts llm.Options) (string, error) {
		m, isMap := classify(prompt)
		if !isMap {
			return "", errors.New("reduce prompt on stuff path")
		}
		return "  " + string(m) + " summary  ", nil
	}}
	cfg := DefaultConfig()
	cfg.ReduceModel = "reduce-model"
	e := NewEngine(fake, cfg, logger.NewNopLogger())

	res, err := e.Summarize(context.Background(), []Chunk{chunk("d1", "alpha"), chunk("d2", "beta")}, Preferences{})
	require.NoError(t, err)

	assert.Equal(t, PathStuff, res.Stats.Path)
	assert.Equal(t, "short summary", res.Short)
	assert.Equal(t, "long summary", res.Long)
	assert.Equal(t, "key_concepts summary", res.KeyConcepts)
	assert.Equal(t, 3, fake.CallCount())
	assert.Equal(t, 3, res.Stats.GenerationCalls)
	for _, c := range fake.Calls() {
		assert.Contains(t, c.Prompt, "alpha\n\nbeta")
		assert.Equal(t, "reduce-model", c.Options.Model)
	}
}

func TestSummarizeMapReduceNoCollapse(t *testing.T) {
	fake := &llmtest.Fake{Respond: func(_ context.Context, prompt string, _ llm.Options) (string, error) {
		m, isMap := classify(prompt)
		if isMap {
			return "partial", nil
		}
		return "final " + string(m), nil
	}}
	cfg := DefaultConfig()
	cfg.MapModel = "map-model"
	e := NewEngine(fake, cfg, logger.NewNopLogger())

	chunks := []Chunk{chunk("d1", "a1"), chunk("d2", "b1"), chunk("d1", "a2")}
	res, err := e.Summarize(context.Background(), chunks, forceMapReduce())
	require.NoError(t, err)

	assert.Equal(t, PathMapReduce, res.Stats.Path)
	assert.Equal(t, 2, res.Stats.Groups)
	assert.Equal(t, "final short", res.Short)
	assert.Equal(t, "final long", res.Long)
	assert.Equal(t, "final key_concepts", res.KeyConcepts)
	// 2 map + 1 finalize per mode
	assert.Equal(t, 9, fake.CallCount())
	for _, m := range Modes {
		assert.Equal(t, 2, res.Stats.MapCalls[m])
		assert.Equal(t, 0, res.Stats.CollapseRounds[m])
	}

	mapModels := 0
	for _, c := range fake.Calls() {
		if _, isMap := classify(c.Prompt); isMap {
			assert.Equal(t, "map-model", c.Options.Model)
			mapModels++
		}
	}
	assert.Equal(t, 6, mapModels)
}

func TestSummarizeCollapseConverges(t *testing.T) {
	fake := &llmtest.Fake{Respond: func(_ context.Context, prompt string, _ llm.Options) (string, error) {
		if _, isMap := classify(prompt); isMap {
			return tokensOf(2000), nil
		}
		return "merged", nil
	}}

	var mu sync.Mutex
	var steps []Step
	e := NewEngine(fake, DefaultConfig(), logger.NewNopLogger(), WithObserver(func(s Step) {
		mu.Lock()
		steps = append(steps, s)
		mu.Unlock()
	}))

	chunks := []Chunk{chunk("d1", "one"), chunk("d2", "two"), chunk("d3", "three"), chunk("d4", "four")}
	res, err := e.Summarize(context.Background(), chunks, forceMapReduce())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.CollapseRounds[ModeShort])
	assert.Equal(t, 1, res.Stats.CollapseRounds[ModeLong])
	assert.Equal(t, 1, res.Stats.CollapseRounds[ModeKeyConcepts])
	assert.Equal(t, "merged", res.Short)

	// short: 4 map + 4 collapse + 1 final; long: 4 + 2 + 1; key_concepts like short
	assert.Equal(t, 9+7+9, fake.CallCount())

	for _, s := range steps {
		if s.Stage == StageFinalize {
			assert.LessOrEqual(t, s.Tokens, s.Mode.Spec().TokenCeiling, "mode %s", s.Mode)
		}
	}

	assertReduceWithinCeiling(t, fake.Calls())
}

// reduceBody strips the reduce instruction and suffix around the batch.
func reduceBody(m Mode, prompt string) string {
	spec := m.Spec()
	return strings.TrimSuffix(strings.TrimPrefix(prompt, spec.ReduceInstruction+"\n\n"), "\n\n"+spec.ReduceSuffix)
}

func assertReduceWithinCeiling(t *testing.T, calls []llmtest.Call) {
	t.Helper()
	for _, c := range calls {
		m, isMap := classify(c.Prompt)
		if isMap {
			continue
		}
		assert.LessOrEqual(t, tokens.Approx{}.Count(reduceBody(m, c.Prompt)), m.Spec().TokenCeiling, "mode %s", m)
	}
}

func TestSummarizeManySmallSummariesStayWithinCeiling(t *testing.T) {
	fake := &llmtest.Fake{Respond: func(_ context.Context, prompt string, _ llm.Options) (string, error) {
		if _, isMap := classify(prompt); isMap {
			return "abc", nil
		}
		return "merged", nil
	}}
	e := NewEngine(fake, DefaultConfig(), logger.NewNopLogger())

	var chunks []Chunk
	for i := 0; i < 4000; i++ {
		chunks = append(chunks, chunk(fmt.Sprintf("doc-%04d", i), "text"))
	}
	res, err := e.Summarize(context.Background(), chunks, Preferences{StuffThreshold: 1, MaxMapCalls: 5000})
	require.NoError(t, err)

	assert.Equal(t, 4000, res.Stats.Groups)
	assert.Equal(t, 1, res.Stats.CollapseRounds[ModeShort])
	assertReduceWithinCeiling(t, fake.Calls())
}

func TestSummarizeCollapseHalvesEachRound(t *testing.T) {
	// every reduce call returns half of its batch
	fake := &llmtest.Fake{Respond: func(_ context.Context, prompt string, _ llm.Options) (string, error) {
		m, isMap := classify(prompt)
		if isMap {
			return tokensOf(2000), nil
		}
		return tokensOf(tokens.Approx{}.Count(reduceBody(m, prompt)) / 2), nil
	}}

	var mu sync.Mutex
	collapsed := map[Mode][]int{}
	e := NewEngine(fake, DefaultConfig(), logger.NewNopLogger(), WithObserver(func(s Step) {
		if s.Stage != StageCollect && s.Stage != StageCollapse {
			return
		}
		mu.Lock()
		collapsed[s.Mode] = append(collapsed[s.Mode], s.Tokens)
		mu.Unlock()
	}))

	var chunks []Chunk
	for i := 0; i < 8; i++ {
		chunks = append(chunks, chunk(fmt.Sprintf("doc-%d", i), "content"))
	}
	res, err := e.Summarize(context.Background(), chunks, forceMapReduce())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Stats.CollapseRounds[ModeShort])
	assert.Equal(t, 2, res.Stats.CollapseRounds[ModeLong])
	assert.Equal(t, 3, res.Stats.CollapseRounds[ModeKeyConcepts])

	for _, m := range Modes {
		seen := collapsed[m]
		require.Len(t, seen, res.Stats.CollapseRounds[m]+1, "mode %s", m)
		for i := 1; i < len(seen); i++ {
			assert.Less(t, seen[i], seen[i-1], "mode %s round %d", m, i)
		}
		bound := int(math.Ceil(math.Log2(float64(seen[0]) / float64(m.Spec().TokenCeiling))))
		assert.LessOrEqual(t, res.Stats.CollapseRounds[m], bound, "mode %s", m)
		assert.LessOrEqual(t, seen[len(seen)-1], m.Spec().TokenCeiling, "mode %s", m)
	}
	assertReduceWithinCeiling(t, fake.Calls())
}

func TestSummarizeCollapseLimit(t *testing.T) {
	// reduce never shrinks its input
	fake := &llmtest.Fake{Respond: func(_ context.Context, prompt string, _ llm.Options) (string, error) {
		return tokensOf(2000), nil
	}}
	cfg := DefaultConfig()
	cfg.RecursionLimit = 2
	e := NewEngine(fake, cfg, logger.NewNopLogger())

	chunks := []Chunk{chunk("d1", "one"), chunk("d2", "two"), chunk("d3", "three"), chunk("d4", "four")}
	_, err := e.Summarize(context.Background(), chunks, forceMapReduce())
	require.Error(t, err)
	assert.ErrorIs(t, err, rag.ErrCollapseLimit)

	var limitErr *rag.CollapseLimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, 2, limitErr.State.Round)
	assert.Equal(t, 2, limitErr.Limit)
	assert.NotEmpty(t, limitErr.State.Pending)
	assert.Greater(t, limitErr.State.Tokens, 3200)
}

func TestSummarizeOversizedUnit(t *testing.T) {
	fake := &llmtest.Fake{Respond: func(_ context.Context, prompt string, _ llm.Options) (string, error) {
		return tokensOf(7000), nil
	}}
	e := NewEngine(fake, DefaultConfig(), logger.NewNopLogger())

	res, err := e.Summarize(context.Background(), []Chunk{chunk("d1", "one"), chunk("d2", "two")}, forceMapReduce())
	require.Error(t, err)
	assert.Equal(t, PathMapReduce, res.Stats.Path)
	assert.ErrorIs(t, err, rag.ErrUnitExceedsCeiling)
}

func TestSummarizeMapFailureIsFatal(t *testing.T) {
	fake := &llmtest.Fake{Respond: func(_ context.Context, prompt string, _ llm.Options) (string, error) {
		if strings.Contains(prompt, "poison") {
			return "", errors.New("model refused")
		}
		return "ok", nil
	}}
	e := NewEngine(fake, DefaultConfig(), logger.NewNopLogger())

	_, err := e.Summarize(context.Background(), []Chunk{chunk("d1", "fine"), chunk("d2", "poison")}, forceMapReduce())
	require.Error(t, err)
	assert.ErrorIs(t, err, rag.ErrGeneration)
}

func TestSummarizeOrderIsDeterministic(t *testing.T) {
	fake := &llmtest.Fake{Respond: func(_ context.Context, prompt string, _ llm.Options) (string, error) {
		_, isMap := classify(prompt)
		if !isMap {
			return "final", nil
		}
		// earlier groups finish last
		for i, marker := range []string{"G0", "G1", "G2"} {
			if strings.Contains(prompt, marker) {
				time.Sleep(time.Duration(3-i) * 10 * time.Millisecond)
				return "sum-" + marker, nil
			}
		}
		return "", errors.New("unexpected prompt")
	}}
	e := NewEngine(fake, DefaultConfig(), logger.NewNopLogger())

	chunks := []Chunk{chunk("a", "G0"), chunk("b", "G1"), chunk("c", "G2")}
	_, err := e.Summarize(context.Background(), chunks, forceMapReduce())
	require.NoError(t, err)

	finals := 0
	for _, c := range fake.Calls() {
		if _, isMap := classify(c.Prompt); isMap {
			continue
		}
		finals++
		assert.Contains(t, c.Prompt, "sum-G0\nsum-G1\nsum-G2")
	}
	assert.Equal(t, 3, finals)
}

func TestSummarizeCapsMapCalls(t *testing.T) {
	fake := &llmtest.Fake{Respond: func(_ context.Context, prompt string, _ llm.Options) (string, error) {
		return "s", nil
	}}
	e := NewEngine(fake, DefaultConfig(), logger.NewNopLogger())

	var chunks []Chunk
	for i := 0; i < 30; i++ {
		chunks = append(chunks, chunk(fmt.Sprintf("doc-%02d", i), fmt.Sprintf("content %d", i)))
	}
	res, err := e.Summarize(context.Background(), chunks, forceMapReduce())
	require.NoError(t, err)

	assert.Equal(t, 24, res.Stats.Groups)
	assert.Equal(t, 6, res.Stats.DroppedGroups)
	assert.Equal(t, 24, res.Stats.MapCalls[ModeShort])
	for _, c := range fake.Calls() {
		assert.NotContains(t, c.Prompt, "content 29")
	}
}

func TestSummarizeSampleFirstK(t *testing.T) {
	fake := llmtest.Static("s")
	e := NewEngine(fake, DefaultConfig(), logger.NewNopLogger())

	chunks := []Chunk{chunk("d1", "keep me"), chunk("d2", "drop me")}
	_, err := e.Summarize(context.Background(), chunks, Preferences{SampleFirstK: 1})
	require.NoError(t, err)
	for _, c := range fake.Calls() {
		assert.Contains(t, c.Prompt, "keep me")
		assert.NotContains(t, c.Prompt, "drop me")
	}
}
