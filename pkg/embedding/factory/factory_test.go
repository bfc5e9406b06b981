package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbeddingProvider(t *testing.T) {
	tests := []struct {
		provider  string
		apiKey    string
		wantModel string
		wantErr   bool
	}{
		{provider: "ollama", wantModel: "nomic-embed-text"},
		{provider: "", wantModel: "nomic-embed-text"},
		{provider: "gemini", apiKey: "k", wantModel: "text-embedding-004"},
		{provider: "gemini", wantErr: true},
		{provider: "jina", apiKey: "k", wantModel: "jina-embeddings-v2-base-en"},
		{provider: "openai", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := NewEmbeddingProvider(tt.provider, "", "", tt.apiKey)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, p.Model())
		})
	}
}
