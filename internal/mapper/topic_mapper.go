package mapper

import (
	"time"

	"studyrag-be/internal/entity"
	"studyrag-be/internal/model"

	"gorm.io/gorm"
)

type TopicMapper struct{}

func NewTopicMapper() *TopicMapper {
	return &TopicMapper{}
}

func (m *TopicMapper) ToEntity(t *model.Topic) *entity.Topic {
	if t == nil {
		return nil
	}

	var deletedAt *time.Time
	if t.DeletedAt.Valid {
		v := t.DeletedAt.Time
		deletedAt = &v
	}

	return &entity.Topic{
		Id:          t.Id,
		Name:        t.Name,
		Description: t.Description,
		UserId:      t.UserId,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   optionalTime(t.UpdatedAt),
		DeletedAt:   deletedAt,
		IsDeleted:   t.DeletedAt.Valid,
	}
}

func (m *TopicMapper) ToModel(t *entity.Topic) *model.Topic {
	if t == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if t.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *t.DeletedAt, Valid: true}
	} else if t.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	return &model.Topic{
		Id:          t.Id,
		Name:        t.Name,
		Description: t.Description,
		UserId:      t.UserId,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   valueTime(t.UpdatedAt),
		DeletedAt:   deletedAt,
	}
}

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ToEntity(d *model.Document) *entity.Document {
	if d == nil {
		return nil
	}
	return &entity.Document{
		Id:         d.Id,
		TopicId:    d.TopicId,
		FileName:   d.FileName,
		Status:     d.Status,
		IsActive:   d.IsActive,
		ChunkCount: d.ChunkCount,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  optionalTime(d.UpdatedAt),
	}
}

func (m *DocumentMapper) ToModel(d *entity.Document) *model.Document {
	if d == nil {
		return nil
	}
	return &model.Document{
		Id:         d.Id,
		TopicId:    d.TopicId,
		FileName:   d.FileName,
		Status:     d.Status,
		IsActive:   d.IsActive,
		ChunkCount: d.ChunkCount,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  valueTime(d.UpdatedAt),
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func valueTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
