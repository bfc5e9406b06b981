package quiz

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"studyrag-be/internal/pkg/logger"
	"studyrag-be/pkg/llm"
	"studyrag-be/pkg/llm/llmtest"
	"studyrag-be/pkg/rag"
	"studyrag-be/pkg/rag/expand"
	"studyrag-be/pkg/rag/pipeline"
	"studyrag-be/pkg/rag/retrieval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", ` {"a":1} `, `{"a":1}`},
		{"fenced with tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced upper tag", "```JSON {\"a\":1}```", `{"a":1}`},
		{"fenced bare", "```\n{\"a\":1}\n```", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSON(tt.in))
		})
	}
}

func TestPacketValidate(t *testing.T) {
	opt := Option{OptionID: "A", Text: "x"}
	tests := []struct {
		name    string
		packet  Packet
		wantErr bool
	}{
		{"ok", Packet{Questions: []Question{{Prompt: "q", Options: []Option{opt, opt}}}}, false},
		{"no questions", Packet{}, true},
		{"one option", Packet{Questions: []Question{{Prompt: "q", Options: []Option{opt}}}}, true},
		{"five options", Packet{Questions: []Question{{Prompt: "q", Options: []Option{opt, opt, opt, opt, opt}}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.packet.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPacket)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNormalize(t *testing.T) {
	p := Packet{Questions: []Question{
		{Prompt: "  padded  ", Options: []Option{
			{OptionID: "1", Text: "yes", IsCorrect: false},
			{OptionID: "2", Text: "no", IsCorrect: true},
		}},
		{Prompt: "two correct", Options: []Option{
			{Text: "a", IsCorrect: true}, {Text: "b", IsCorrect: true}, {Text: "c"}, {Text: "d"},
		}},
		{Prompt: "none correct", Options: []Option{{Text: "a"}, {Text: "b"}, {Text: "c"}}},
		{Prompt: "dropped", Options: []Option{{Text: "a"}, {Text: "b"}}},
	}}

	got := Normalize(p, 3)
	require.Len(t, got, 3)

	assert.Equal(t, "padded", got[0].Prompt)
	assert.Equal(t, []Option{
		{OptionID: "A", Text: "yes"},
		{OptionID: "B", Text: "no", IsCorrect: true},
		{OptionID: "C", Text: "None of the above"},
		{OptionID: "D", Text: "None of the above"},
	}, got[0].Options)

	assert.True(t, got[1].Options[0].IsCorrect)
	assert.False(t, got[1].Options[1].IsCorrect)

	assert.True(t, got[2].Options[0].IsCorrect)

	for _, q := range got {
		require.Len(t, q.Options, 4)
		correct := 0
		for i, o := range q.Options {
			assert.Equal(t, labels[i], o.OptionID)
			if o.IsCorrect {
				correct++
			}
		}
		assert.Equal(t, 1, correct, q.Prompt)
	}
}

func TestNormalizeTrimsExtraOptions(t *testing.T) {
	p := Packet{Questions: []Question{{Prompt: "q", Options: []Option{
		{Text: "a"}, {Text: "b"}, {Text: "c"}, {Text: "d"}, {Text: "e", IsCorrect: true},
	}}}}
	got := Normalize(p, 10)
	require.Len(t, got[0].Options, 4)
	assert.Equal(t, "d", got[0].Options[3].Text)
	assert.True(t, got[0].Options[0].IsCorrect)
}

func TestFormatContext(t *testing.T) {
	frags := []rag.Fragment{{Content: " first "}, {Content: "   "}, {Content: "third chunk"}}
	assert.Equal(t, "[CTX 1]\nfirst\n\n[CTX 3]\nthird chunk", FormatContext(frags, 1000))

	// header 8 runes + 5 runes of body, then the budget is spent
	assert.Equal(t, "[CTX 1]\nfirst", FormatContext(frags, 13))
	assert.Equal(t, "[CTX 1]\nfir", FormatContext(frags, 11))
	assert.Equal(t, "", FormatContext(frags, 5))
}

type counter struct{ n int64 }

func (c counter) CountActive(context.Context, string) (int64, error) { return c.n, nil }

type fixedRetriever struct {
	mu      sync.Mutex
	frags   []rag.Fragment
	queries []string
}

func (f *fixedRetriever) Retrieve(_ context.Context, q string, _ int, _ retrieval.Filter) ([]rag.Fragment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.frags, nil
}

const validPacket = `{"questions":[{"prompt":"What stores energy?","options":[{"option_id":"A","text":"ATP","is_correct":true},{"option_id":"B","text":"DNA","is_correct":false}]}]}`

func newGenerator(fake *llmtest.Fake, ret *fixedRetriever, n int64) *Generator {
	log := logger.NewNopLogger()
	p := pipeline.NewRetrieval(expand.NewExpander(fake, log), retrieval.NewFusion(ret, log), nil, log)
	return NewGenerator(fake, p, counter{n}, Config{Retriever: "vanilla"}, log)
}

func isQuizPrompt(prompt string) bool {
	return strings.HasPrefix(prompt, systemBase)
}

func TestGenerate(t *testing.T) {
	fake := &llmtest.Fake{Respond: func(_ context.Context, prompt string, _ llm.Options) (string, error) {
		if isQuizPrompt(prompt) {
			return "```json\n" + validPacket + "\n```", nil
		}
		return "energy molecules", nil
	}}
	ret := &fixedRetriever{frags: []rag.Fragment{{Content: "ATP stores energy.", Metadata: map[string]any{"document_id": "d"}}}}
	g := newGenerator(fake, ret, 3)

	res, err := g.Generate(context.Background(), Params{TopicID: "t1", Count: 5})
	require.NoError(t, err)

	require.Len(t, res.Questions, 1)
	assert.Equal(t, "What stores energy?", res.Questions[0].Prompt)
	assert.Len(t, res.Questions[0].Options, 4)
	assert.Equal(t, DefaultScope, res.Scope)
	assert.Equal(t, ModeMultiQuery, res.Mode)
	assert.Equal(t, 1, res.ContextDocs)
	assert.Contains(t, ret.queries, DefaultScope)
	assert.Contains(t, ret.queries, "energy molecules")

	var quizPrompt string
	for _, c := range fake.Calls() {
		if isQuizPrompt(c.Prompt) {
			quizPrompt = c.Prompt
		}
	}
	assert.Contains(t, quizPrompt, "CONTEXT:\n[CTX 1]\nATP stores energy.\n\nUser:\nCreate 5 medium questions")
}

func TestGenerateRetriesOnBadJSON(t *testing.T) {
	fake := &llmtest.Fake{Respond: func(_ context.Context, prompt string, _ llm.Options) (string, error) {
		if strings.HasSuffix(prompt, StrictJSONRetry) {
			return validPacket, nil
		}
		return "Here is your quiz!", nil
	}}
	ret := &fixedRetriever{frags: []rag.Fragment{{Content: "ctx"}}}
	g := newGenerator(fake, ret, 1)

	res, err := g.Generate(context.Background(), Params{TopicID: "t", Mode: ModeHyde})
	require.NoError(t, err)
	assert.Len(t, res.Questions, 1)
}

func TestGenerateFailures(t *testing.T) {
	t.Run("no active chunks", func(t *testing.T) {
		g := newGenerator(llmtest.Static(validPacket), &fixedRetriever{}, 0)
		_, err := g.Generate(context.Background(), Params{TopicID: "t"})
		assert.ErrorIs(t, err, ErrNoActiveChunks)
	})

	t.Run("empty context", func(t *testing.T) {
		g := newGenerator(llmtest.Static(validPacket), &fixedRetriever{frags: []rag.Fragment{{Content: "  "}}}, 1)
		_, err := g.Generate(context.Background(), Params{TopicID: "t"})
		assert.ErrorIs(t, err, ErrEmptyContext)
	})

	t.Run("json never parses", func(t *testing.T) {
		g := newGenerator(llmtest.Static("not json"), &fixedRetriever{frags: []rag.Fragment{{Content: "c"}}}, 1)
		_, err := g.Generate(context.Background(), Params{TopicID: "t"})
		assert.ErrorIs(t, err, ErrInvalidPacket)
	})

	t.Run("packet fails validation", func(t *testing.T) {
		g := newGenerator(llmtest.Static(`{"questions":[]}`), &fixedRetriever{frags: []rag.Fragment{{Content: "c"}}}, 1)
		_, err := g.Generate(context.Background(), Params{TopicID: "t"})
		assert.ErrorIs(t, err, ErrInvalidPacket)
	})

	t.Run("bad difficulty", func(t *testing.T) {
		g := newGenerator(llmtest.Static(validPacket), &fixedRetriever{}, 1)
		_, err := g.Generate(context.Background(), Params{TopicID: "t", Difficulty: "extreme"})
		assert.Error(t, err)
	})

	t.Run("model error", func(t *testing.T) {
		fake := &llmtest.Fake{Respond: func(_ context.Context, prompt string, _ llm.Options) (string, error) {
			if isQuizPrompt(prompt) {
				return "", errors.New("offline")
			}
			return "", nil
		}}
		g := newGenerator(fake, &fixedRetriever{frags: []rag.Fragment{{Content: "c"}}}, 1)
		_, err := g.Generate(context.Background(), Params{TopicID: "t"})
		assert.ErrorIs(t, err, rag.ErrGeneration)
	})
}
