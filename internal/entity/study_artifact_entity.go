package entity

import (
	"time"

	"github.com/google/uuid"
)

type TopicSummary struct {
	Id          uuid.UUID
	TopicId     uuid.UUID
	Short       string
	Long        string
	KeyConcepts string
	Path        string
	Stats       map[string]interface{}
	CreatedAt   time.Time
}

type Quiz struct {
	Id           uuid.UUID
	TopicId      uuid.UUID
	Status       string
	Difficulty   string
	Length       int
	Scope        string
	Mode         string
	ContextDocs  int
	ErrorMessage string
	Questions    []QuizQuestion
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

type QuizQuestion struct {
	Id         uuid.UUID
	OrderIndex int
	Prompt     string
	Options    []QuizOption
}

type QuizOption struct {
	Id        uuid.UUID
	Label     string
	Text      string
	IsCorrect bool
}
