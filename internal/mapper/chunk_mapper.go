package mapper

import (
	"strconv"

	"studyrag-be/internal/entity"
	"studyrag-be/internal/model"
	"studyrag-be/pkg/rag"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type ChunkMapper struct{}

func NewChunkMapper() *ChunkMapper {
	return &ChunkMapper{}
}

func (m *ChunkMapper) ToEntity(c *model.Chunk) *entity.Chunk {
	if c == nil {
		return nil
	}
	return &entity.Chunk{
		Id:         c.Id,
		TopicId:    c.TopicId,
		DocumentId: c.DocumentId,
		FileName:   c.FileName,
		Page:       c.Page,
		ChunkIndex: c.ChunkIndex,
		Content:    c.Content,
		Embedding:  c.Embedding.Slice(),
		Metadata:   map[string]interface{}(c.Metadata),
		IsActive:   c.IsActive,
		CreatedAt:  c.CreatedAt,
	}
}

func (m *ChunkMapper) ToModel(c *entity.Chunk) *model.Chunk {
	if c == nil {
		return nil
	}
	return &model.Chunk{
		Id:         c.Id,
		TopicId:    c.TopicId,
		DocumentId: c.DocumentId,
		FileName:   c.FileName,
		Page:       c.Page,
		ChunkIndex: c.ChunkIndex,
		Content:    c.Content,
		Embedding:  pgvector.NewVector(c.Embedding),
		Metadata:   datatypes.JSONMap(c.Metadata),
		IsActive:   c.IsActive,
		CreatedAt:  c.CreatedAt,
	}
}

func (m *ChunkMapper) ToModels(chunks []*entity.Chunk) []*model.Chunk {
	models := make([]*model.Chunk, len(chunks))
	for i, c := range chunks {
		models[i] = m.ToModel(c)
	}
	return models
}

// ToFragment exposes a stored chunk to the RAG engines. Columns win over
// free-form metadata keys of the same name.
func (m *ChunkMapper) ToFragment(c *entity.Chunk, similarity *float64) rag.Fragment {
	md := make(map[string]any, len(c.Metadata)+5)
	for k, v := range c.Metadata {
		md[k] = v
	}
	md[rag.MetaDocumentID] = c.DocumentId.String()
	md[rag.MetaTopicID] = c.TopicId.String()
	md[rag.MetaFileName] = c.FileName
	md[rag.MetaPage] = strconv.Itoa(c.Page)
	md[rag.MetaChunkIndex] = c.ChunkIndex
	if similarity != nil {
		md[rag.MetaSimilarity] = *similarity
	}
	return rag.Fragment{Content: c.Content, Metadata: md, Score: similarity}
}
