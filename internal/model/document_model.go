package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DocumentStatusPending  = "pending"
	DocumentStatusIngested = "ingested"
	DocumentStatusFailed   = "failed"
)

type Document struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TopicId    uuid.UUID      `gorm:"type:uuid;not null;index"`
	FileName   string         `gorm:"type:varchar(512);not null"`
	Status     string         `gorm:"type:varchar(20);not null;default:'pending'"`
	IsActive   bool           `gorm:"not null;default:true"`
	ChunkCount int            `gorm:"default:0"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (Document) TableName() string {
	return "documents"
}
