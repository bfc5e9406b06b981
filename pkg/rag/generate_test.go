package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"studyrag-be/pkg/llm"
	"studyrag-be/pkg/llm/llmtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name      string
		replies   []string
		failFirst bool
		want      string
		wantErr   bool
		wantCalls int
	}{
		{name: "first answer used", replies: []string{"  answer  "}, want: "answer", wantCalls: 1},
		{name: "blank retried", replies: []string{"   ", "second"}, want: "second", wantCalls: 2},
		{name: "error retried", failFirst: true, replies: []string{"recovered"}, want: "recovered", wantCalls: 2},
		{name: "blank twice fails", replies: []string{"", "\n"}, wantErr: true, wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := llmtest.Sequence(tt.replies...)
			failed := false
			fake := &llmtest.Fake{Respond: func(ctx context.Context, prompt string, opts llm.Options) (string, error) {
				if tt.failFirst && !failed {
					failed = true
					return "", errors.New("transport")
				}
				return seq.Respond(ctx, prompt, opts)
			}}

			out, err := Generate(context.Background(), fake, "prompt", "")
			assert.Equal(t, tt.wantCalls, fake.CallCount())
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrGeneration))
				var genErr *GenerationError
				require.True(t, errors.As(err, &genErr))
				assert.Equal(t, 2, genErr.Attempts)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestGenerateRetryCarriesStricterInstruction(t *testing.T) {
	fake := llmtest.Sequence("", "ok")
	_, err := Generate(context.Background(), fake, "base", "Return ONLY JSON.")
	require.NoError(t, err)

	calls := fake.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "base", calls[0].Prompt)
	assert.True(t, strings.HasSuffix(calls[1].Prompt, "Return ONLY JSON."))
}

func TestGenerateSecondErrorIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	fake := &llmtest.Fake{Respond: func(context.Context, string, llm.Options) (string, error) {
		return "", boom
	}}
	_, err := Generate(context.Background(), fake, "p", "")
	assert.ErrorIs(t, err, ErrGeneration)
	assert.ErrorIs(t, err, boom)
}

func TestFragmentIdentity(t *testing.T) {
	a := Fragment{Content: "x", Metadata: map[string]any{"document_id": "d1", "page": 3}}
	b := Fragment{Content: "x", Metadata: map[string]any{"document_id": "d1", "page": float64(3)}}
	c := Fragment{Content: "x", Metadata: map[string]any{"document_id": "d1"}}

	assert.Equal(t, a.Identity(), b.Identity())
	assert.NotEqual(t, a.Identity(), c.Identity())
	assert.Equal(t, "?", c.FileName())
}

func TestCollapseLimitError(t *testing.T) {
	err := error(&CollapseLimitError{State: CollapseState{Mode: "short", Pending: []string{"a"}, Tokens: 9000}, Limit: 12})
	assert.ErrorIs(t, err, ErrCollapseLimit)
	assert.Contains(t, err.Error(), "short")
}
