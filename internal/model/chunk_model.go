package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// Chunk is one embedded slice of a document page. Chunks are replaced, not
// soft deleted, when a document is re-ingested.
type Chunk struct {
	Id         uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TopicId    uuid.UUID         `gorm:"type:uuid;not null;index:idx_chunks_topic_active"`
	DocumentId uuid.UUID         `gorm:"type:uuid;not null;index"`
	FileName   string            `gorm:"type:varchar(512)"`
	Page       int               `gorm:"default:0"`
	ChunkIndex int               `gorm:"default:0"`
	Content    string            `gorm:"type:text;not null"`
	Embedding  pgvector.Vector   `gorm:"type:vector(768)"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb"`
	IsActive   bool              `gorm:"not null;default:true;index:idx_chunks_topic_active"`
	CreatedAt  time.Time         `gorm:"autoCreateTime"`
}

func (Chunk) TableName() string {
	return "chunks"
}
