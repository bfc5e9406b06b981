package contract

import (
	"context"

	"studyrag-be/internal/entity"
	"studyrag-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredChunk wraps a Chunk with its cosine similarity (1.0 = identical).
type ScoredChunk struct {
	Chunk      *entity.Chunk
	Similarity float64
}

// ChunkSearch narrows a similarity search. A zero DocumentId searches the
// whole topic.
type ChunkSearch struct {
	TopicId    uuid.UUID
	DocumentId uuid.UUID
	OnlyActive bool
	Threshold  float64
}

type ChunkRepository interface {
	CreateBulk(ctx context.Context, chunks []*entity.Chunk) error
	DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error
	SetActiveByDocumentId(ctx context.Context, documentId uuid.UUID, active bool) (int64, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chunk, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, search ChunkSearch) ([]*ScoredChunk, error)
}
