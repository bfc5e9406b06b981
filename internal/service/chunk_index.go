package service

import (
	"context"
	"fmt"

	"studyrag-be/internal/mapper"
	"studyrag-be/internal/pkg/serverutils"
	"studyrag-be/internal/repository/contract"
	"studyrag-be/internal/repository/specification"
	"studyrag-be/internal/repository/unitofwork"
	"studyrag-be/pkg/rag"
	"studyrag-be/pkg/rag/retrieval"

	"github.com/google/uuid"
)

// ChunkIndex exposes the chunk table to the RAG engines as a vector index
// and as the active-chunk counter the quiz generator needs.
type ChunkIndex struct {
	uowFactory unitofwork.RepositoryFactory
	mapper     *mapper.ChunkMapper
	threshold  float64
}

func NewChunkIndex(uowFactory unitofwork.RepositoryFactory, threshold float64) *ChunkIndex {
	return &ChunkIndex{uowFactory: uowFactory, mapper: mapper.NewChunkMapper(), threshold: threshold}
}

func (c *ChunkIndex) Search(ctx context.Context, embedding []float32, k int, filter retrieval.Filter) ([]rag.Fragment, error) {
	search, err := chunkSearch(filter)
	if err != nil {
		return nil, err
	}
	search.Threshold = c.threshold

	uow := c.uowFactory.NewUnitOfWork(ctx)
	scored, err := uow.ChunkRepository().SearchSimilarWithScore(ctx, embedding, k, search)
	if err != nil {
		return nil, err
	}
	frags := make([]rag.Fragment, len(scored))
	for i, s := range scored {
		sim := s.Similarity
		frags[i] = c.mapper.ToFragment(s.Chunk, &sim)
	}
	return frags, nil
}

func (c *ChunkIndex) CountActive(ctx context.Context, topicID string) (int64, error) {
	id, err := uuid.Parse(topicID)
	if err != nil {
		return 0, fmt.Errorf("%w: topic id %q", serverutils.ErrInvalidInput, topicID)
	}
	uow := c.uowFactory.NewUnitOfWork(ctx)
	return uow.ChunkRepository().Count(ctx, specification.ByTopicID{TopicID: id}, specification.ActiveOnly{})
}

func chunkSearch(filter retrieval.Filter) (contract.ChunkSearch, error) {
	topicId, err := uuid.Parse(filter.TopicID)
	if err != nil {
		return contract.ChunkSearch{}, fmt.Errorf("%w: topic id %q", serverutils.ErrInvalidInput, filter.TopicID)
	}
	search := contract.ChunkSearch{TopicId: topicId, OnlyActive: filter.OnlyActive}
	if filter.DocumentID != "" {
		docId, err := uuid.Parse(filter.DocumentID)
		if err != nil {
			return contract.ChunkSearch{}, fmt.Errorf("%w: document id %q", serverutils.ErrInvalidInput, filter.DocumentID)
		}
		search.DocumentId = docId
	}
	return search, nil
}
