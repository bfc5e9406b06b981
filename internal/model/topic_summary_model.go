package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type TopicSummary struct {
	Id          uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TopicId     uuid.UUID         `gorm:"type:uuid;not null;index"`
	Short       string            `gorm:"type:text"`
	Long        string            `gorm:"type:text"`
	KeyConcepts string            `gorm:"type:text"`
	Path        string            `gorm:"type:varchar(20)"`
	Stats       datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt   time.Time         `gorm:"autoCreateTime"`
}

func (TopicSummary) TableName() string {
	return "topic_summaries"
}
