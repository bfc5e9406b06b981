package implementation

import (
	"context"

	"studyrag-be/internal/entity"
	"studyrag-be/internal/mapper"
	"studyrag-be/internal/model"
	"studyrag-be/internal/repository/contract"
	"studyrag-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

const chunkInsertBatch = 200

type ChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChunkMapper
}

func NewChunkRepository(db *gorm.DB) contract.ChunkRepository {
	return &ChunkRepositoryImpl{db: db, mapper: mapper.NewChunkMapper()}
}

func (r *ChunkRepositoryImpl) CreateBulk(ctx context.Context, chunks []*entity.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	models := r.mapper.ToModels(chunks)
	if err := r.db.WithContext(ctx).CreateInBatches(models, chunkInsertBatch).Error; err != nil {
		return err
	}
	for i, m := range models {
		*chunks[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *ChunkRepositoryImpl) DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("document_id = ?", documentId).Delete(&model.Chunk{}).Error
}

func (r *ChunkRepositoryImpl) SetActiveByDocumentId(ctx context.Context, documentId uuid.UUID, active bool) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Chunk{}).
		Where("document_id = ?", documentId).
		Update("is_active", active)
	return res.RowsAffected, res.Error
}

func (r *ChunkRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chunk, error) {
	var models []*model.Chunk
	if err := applySpecifications(r.db.WithContext(ctx), specs...).Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Chunk, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *ChunkRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	err := applySpecifications(r.db.WithContext(ctx), specs...).Model(&model.Chunk{}).Count(&count).Error
	return count, err
}

// SearchSimilarWithScore orders by cosine distance. pgvector's <=> is
// 1 - cosine_similarity, so similarity is recovered as 1 - distance.
func (r *ChunkRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, search contract.ChunkSearch) ([]*contract.ScoredChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.Chunk
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	query := r.db.WithContext(ctx).
		Table("chunks").
		Select("chunks.*, 1 - (embedding <=> ?) as similarity", queryVector).
		Where("topic_id = ?", search.TopicId)
	if search.OnlyActive {
		query = query.Where("is_active = ?", true)
	}
	if search.DocumentId != uuid.Nil {
		query = query.Where("document_id = ?", search.DocumentId)
	}
	if search.Threshold > 0 {
		query = query.Where("1 - (embedding <=> ?) >= ?", queryVector, search.Threshold)
	}

	err := query.
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredChunk, len(results))
	for i := range results {
		scored[i] = &contract.ScoredChunk{
			Chunk:      r.mapper.ToEntity(&results[i].Chunk),
			Similarity: results[i].Similarity,
		}
	}
	return scored, nil
}
