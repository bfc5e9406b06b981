package entity

import (
	"time"

	"github.com/google/uuid"
)

type Topic struct {
	Id          uuid.UUID
	Name        string
	Description string
	UserId      uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	DeletedAt   *time.Time
	IsDeleted   bool
}

type Document struct {
	Id         uuid.UUID
	TopicId    uuid.UUID
	FileName   string
	Status     string
	IsActive   bool
	ChunkCount int
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}
