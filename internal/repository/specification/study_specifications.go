package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByTopicID struct {
	TopicID uuid.UUID
}

func (s ByTopicID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("topic_id = ?", s.TopicID)
}

type ByDocumentID struct {
	DocumentID uuid.UUID
}

func (s ByDocumentID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("document_id = ?", s.DocumentID)
}

// ActiveOnly keeps rows whose is_active flag is set.
type ActiveOnly struct{}

func (s ActiveOnly) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_active = ?", true)
}

// ChunkReadingOrder sorts chunks the way their documents read.
type ChunkReadingOrder struct{}

func (s ChunkReadingOrder) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("document_id ASC").Order("page ASC").Order("chunk_index ASC")
}

type UserOwnedBy struct {
	UserID uuid.UUID
}

func (s UserOwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

// WithQuestions preloads quiz questions and their options in order.
type WithQuestions struct{}

func (s WithQuestions) Apply(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("order_index ASC") }).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB { return db.Order("label ASC") })
}
