package contract

import (
	"context"

	"studyrag-be/internal/entity"
	"studyrag-be/internal/repository/specification"

	"github.com/google/uuid"
)

type SummaryRepository interface {
	Create(ctx context.Context, summary *entity.TopicSummary) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.TopicSummary, error)
}

type QuizRepository interface {
	Create(ctx context.Context, quiz *entity.Quiz) error
	Update(ctx context.Context, quiz *entity.Quiz) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Quiz, error)
	// ReplaceQuestions deletes the quiz's questions and options and inserts
	// the given ones in order.
	ReplaceQuestions(ctx context.Context, quizId uuid.UUID, questions []entity.QuizQuestion) error
}
