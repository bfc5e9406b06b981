package embedding

import (
	"context"
	"fmt"
	"math"
)

// Task types understood by providers that embed queries and documents
// differently. Providers without the distinction ignore them.
const (
	TaskQuery    = "RETRIEVAL_QUERY"
	TaskDocument = "RETRIEVAL_DOCUMENT"
)

// Dimension is the vector size stored in the chunks table.
const Dimension = 768

type EmbeddingResponseEmbedding struct {
	Values []float32 `json:"values"`
}

type EmbeddingResponse struct {
	Embedding EmbeddingResponseEmbedding `json:"embedding"`
}

// EmbeddingProvider defines the interface for generating text embeddings
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error)
	Model() string
}

// QueryEmbedder adapts a provider to retrieval.Embedder.
type QueryEmbedder struct {
	Provider EmbeddingProvider
}

func (q QueryEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	res, err := q.Provider.Generate(ctx, text, TaskQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return res.Embedding.Values, nil
}

// EmbedDocument embeds one stored chunk.
func EmbedDocument(ctx context.Context, p EmbeddingProvider, text string) ([]float32, error) {
	res, err := p.Generate(ctx, text, TaskDocument)
	if err != nil {
		return nil, fmt.Errorf("embed document: %w", err)
	}
	return res.Embedding.Values, nil
}

// normalizeVector scales vec to unit length; cosine distance in pgvector
// assumes it.
func normalizeVector(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)
	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
