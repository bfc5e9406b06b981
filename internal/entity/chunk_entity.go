package entity

import (
	"time"

	"github.com/google/uuid"
)

type Chunk struct {
	Id         uuid.UUID
	TopicId    uuid.UUID
	DocumentId uuid.UUID
	FileName   string
	Page       int
	ChunkIndex int
	Content    string
	Embedding  []float32
	Metadata   map[string]interface{}
	IsActive   bool
	CreatedAt  time.Time
}
