package retrieval

import (
	"context"
	"fmt"

	"studyrag-be/pkg/rag"
)

// Filter restricts a search to a topic and, optionally, one document.
type Filter struct {
	TopicID    string
	OnlyActive bool
	DocumentID string
}

// VectorIndex is the similarity-search contract of the chunk store.
type VectorIndex interface {
	Search(ctx context.Context, embedding []float32, k int, filter Filter) ([]rag.Fragment, error)
}

// Embedder turns a query into a vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Retriever returns up to fetchK fragments for one query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, fetchK int, filter Filter) ([]rag.Fragment, error)
}

type VectorRetriever struct {
	embedder Embedder
	index    VectorIndex
}

func NewVectorRetriever(embedder Embedder, index VectorIndex) *VectorRetriever {
	return &VectorRetriever{embedder: embedder, index: index}
}

func (r *VectorRetriever) Retrieve(ctx context.Context, query string, fetchK int, filter Filter) ([]rag.Fragment, error) {
	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	frags, err := r.index.Search(ctx, vec, fetchK, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return frags, nil
}

// RetrieverFunc adapts a function to Retriever.
type RetrieverFunc func(ctx context.Context, query string, fetchK int, filter Filter) ([]rag.Fragment, error)

func (f RetrieverFunc) Retrieve(ctx context.Context, query string, fetchK int, filter Filter) ([]rag.Fragment, error) {
	return f(ctx, query, fetchK, filter)
}
