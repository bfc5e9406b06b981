package summarize

import (
	"testing"

	"studyrag-be/pkg/tokens"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupAndStuff(t *testing.T) {
	est := tokens.Approx{}

	t.Run("buckets in first-appearance order", func(t *testing.T) {
		chunks := []Chunk{
			{Content: "b1", Metadata: map[string]any{"document_id": "B"}},
			{Content: "a1", Metadata: map[string]any{"doc_id": "A"}},
			{Content: "b2", Metadata: map[string]any{"document_id": "B"}},
			{Content: "u1", Metadata: map[string]any{}},
		}
		got := GroupAndStuff(chunks, "document_id", 10000, est)
		require.Len(t, got, 3)
		assert.Equal(t, StuffedGroup{Key: "B", Text: "b1\n\nb2"}, got[0])
		assert.Equal(t, StuffedGroup{Key: "A", Text: "a1"}, got[1])
		assert.Equal(t, StuffedGroup{Key: unknownGroup, Text: "u1"}, got[2])
	})

	t.Run("file name fallbacks", func(t *testing.T) {
		chunks := []Chunk{
			{Content: "x", Metadata: map[string]any{"source": "notes.pdf"}},
			{Content: "y", Metadata: map[string]any{"file_name": "notes.pdf"}},
		}
		got := GroupAndStuff(chunks, "file_name", 10000, est)
		require.Len(t, got, 1)
		assert.Equal(t, "x\n\ny", got[0].Text)
	})

	t.Run("none puts everything together", func(t *testing.T) {
		chunks := []Chunk{
			{Content: "x", Metadata: map[string]any{"document_id": "1"}},
			{Content: "y", Metadata: map[string]any{"document_id": "2"}},
		}
		got := GroupAndStuff(chunks, "none", 10000, est)
		require.Len(t, got, 1)
	})

	t.Run("stuffing limit splits a bucket", func(t *testing.T) {
		chunks := []Chunk{
			{Content: tokensOf(6), Metadata: map[string]any{"document_id": "A"}},
			{Content: tokensOf(6), Metadata: map[string]any{"document_id": "A"}},
			{Content: tokensOf(20), Metadata: map[string]any{"document_id": "A"}},
		}
		got := GroupAndStuff(chunks, "document_id", 12, est)
		require.Len(t, got, 2)
		assert.Equal(t, tokensOf(6)+"\n\n"+tokensOf(6), got[0].Text)
		assert.Equal(t, tokensOf(20), got[1].Text)
	})

	assert.Nil(t, GroupAndStuff(nil, "document_id", 10, est))
}

func TestSplitForCollapse(t *testing.T) {
	est := tokens.Approx{}
	tests := []struct {
		name    string
		items   []string
		ceiling int
		want    [][]string
		wantErr bool
	}{
		{
			name:    "fits in one part",
			items:   []string{tokensOf(2), tokensOf(2)},
			ceiling: 10,
			want:    [][]string{{tokensOf(2), tokensOf(2)}},
		},
		{
			name:    "greedy contiguous parts",
			items:   []string{tokensOf(4), tokensOf(4), tokensOf(4)},
			ceiling: 9,
			want:    [][]string{{tokensOf(4), tokensOf(4)}, {tokensOf(4)}},
		},
		{
			name:    "separator counts toward the ceiling",
			items:   []string{"abc", "abc", "abc", "abc"},
			ceiling: 3,
			want:    [][]string{{"abc", "abc", "abc"}, {"abc"}},
		},
		{
			name:    "first unit too large",
			items:   []string{tokensOf(20)},
			ceiling: 9,
			wantErr: true,
		},
		{
			name:    "later unit too large",
			items:   []string{tokensOf(2), tokensOf(20)},
			ceiling: 9,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitForCollapse(tt.items, "\n\n", tt.ceiling, est)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModeSpecs(t *testing.T) {
	for _, m := range Modes {
		assert.True(t, m.Valid())
		s := m.Spec()
		assert.Contains(t, s.ReducePrompt("DOCS"), "\n\nDOCS\n\n"+s.ReduceSuffix)
		assert.Equal(t, s.MapInstruction+"\n\nBODY", s.MapPrompt("BODY"))
	}
	assert.False(t, Mode("poem").Valid())
	assert.Equal(t, 3200, ModeShort.Spec().TokenCeiling)
	assert.Equal(t, 6000, ModeLong.Spec().TokenCeiling)
}
