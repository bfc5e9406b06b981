package mapper

import (
	"studyrag-be/internal/entity"
	"studyrag-be/internal/model"

	"gorm.io/datatypes"
)

type SummaryMapper struct{}

func NewSummaryMapper() *SummaryMapper {
	return &SummaryMapper{}
}

func (m *SummaryMapper) ToEntity(s *model.TopicSummary) *entity.TopicSummary {
	if s == nil {
		return nil
	}
	return &entity.TopicSummary{
		Id:          s.Id,
		TopicId:     s.TopicId,
		Short:       s.Short,
		Long:        s.Long,
		KeyConcepts: s.KeyConcepts,
		Path:        s.Path,
		Stats:       map[string]interface{}(s.Stats),
		CreatedAt:   s.CreatedAt,
	}
}

func (m *SummaryMapper) ToModel(s *entity.TopicSummary) *model.TopicSummary {
	if s == nil {
		return nil
	}
	return &model.TopicSummary{
		Id:          s.Id,
		TopicId:     s.TopicId,
		Short:       s.Short,
		Long:        s.Long,
		KeyConcepts: s.KeyConcepts,
		Path:        s.Path,
		Stats:       datatypes.JSONMap(s.Stats),
		CreatedAt:   s.CreatedAt,
	}
}

type QuizMapper struct{}

func NewQuizMapper() *QuizMapper {
	return &QuizMapper{}
}

func (m *QuizMapper) ToEntity(q *model.Quiz) *entity.Quiz {
	if q == nil {
		return nil
	}
	return &entity.Quiz{
		Id:           q.Id,
		TopicId:      q.TopicId,
		Status:       q.Status,
		Difficulty:   q.Difficulty,
		Length:       q.Length,
		Scope:        q.Scope,
		Mode:         q.Mode,
		ContextDocs:  q.ContextDocs,
		ErrorMessage: q.ErrorMessage,
		Questions:    m.QuestionsToEntity(q.Questions),
		CreatedAt:    q.CreatedAt,
		UpdatedAt:    optionalTime(q.UpdatedAt),
	}
}

// ToModel maps the quiz row only. Questions are written through
// ReplaceQuestions.
func (m *QuizMapper) ToModel(q *entity.Quiz) *model.Quiz {
	if q == nil {
		return nil
	}
	return &model.Quiz{
		Id:           q.Id,
		TopicId:      q.TopicId,
		Status:       q.Status,
		Difficulty:   q.Difficulty,
		Length:       q.Length,
		Scope:        q.Scope,
		Mode:         q.Mode,
		ContextDocs:  q.ContextDocs,
		ErrorMessage: q.ErrorMessage,
		CreatedAt:    q.CreatedAt,
		UpdatedAt:    valueTime(q.UpdatedAt),
	}
}

func (m *QuizMapper) QuestionsToEntity(questions []model.QuizQuestion) []entity.QuizQuestion {
	out := make([]entity.QuizQuestion, len(questions))
	for i, q := range questions {
		opts := make([]entity.QuizOption, len(q.Options))
		for j, o := range q.Options {
			opts[j] = entity.QuizOption{Id: o.Id, Label: o.Label, Text: o.Text, IsCorrect: o.IsCorrect}
		}
		out[i] = entity.QuizQuestion{Id: q.Id, OrderIndex: q.OrderIndex, Prompt: q.Prompt, Options: opts}
	}
	return out
}
