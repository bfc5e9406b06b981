package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	QuizStatusProcessing = "processing"
	QuizStatusReady      = "ready"
	QuizStatusFailed     = "failed"
)

type Quiz struct {
	Id           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TopicId      uuid.UUID      `gorm:"type:uuid;not null;index"`
	Status       string         `gorm:"type:varchar(20);not null;default:'processing'"`
	Difficulty   string         `gorm:"type:varchar(10)"`
	Length       int            `gorm:"default:10"`
	Scope        string         `gorm:"type:text"`
	Mode         string         `gorm:"type:varchar(20)"`
	ContextDocs  int            `gorm:"default:0"`
	ErrorMessage string         `gorm:"type:text"`
	Questions    []QuizQuestion `gorm:"foreignKey:QuizId;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

type QuizQuestion struct {
	Id         uuid.UUID    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	QuizId     uuid.UUID    `gorm:"type:uuid;not null;index"`
	OrderIndex int          `gorm:"not null"`
	Prompt     string       `gorm:"type:text;not null"`
	Options    []QuizOption `gorm:"foreignKey:QuestionId;constraint:OnDelete:CASCADE"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

type QuizOption struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	QuestionId uuid.UUID `gorm:"type:uuid;not null;index"`
	Label      string    `gorm:"type:varchar(2);not null"`
	Text       string    `gorm:"type:text;not null"`
	IsCorrect  bool      `gorm:"not null;default:false"`
}

func (QuizOption) TableName() string {
	return "quiz_options"
}
