package service

import (
	"context"
	"fmt"

	"studyrag-be/internal/dto"
	"studyrag-be/internal/entity"
	"studyrag-be/internal/model"
	"studyrag-be/internal/pkg/logger"
	"studyrag-be/internal/pkg/serverutils"
	"studyrag-be/internal/repository/specification"
	"studyrag-be/internal/repository/unitofwork"
	"studyrag-be/pkg/events"
	"studyrag-be/pkg/rag/quiz"

	"github.com/google/uuid"
)

const quizModule = "quiz"

type IQuizService interface {
	Generate(ctx context.Context, userId uuid.UUID, req *dto.GenerateQuizRequest) (*dto.QuizResponse, error)
	Show(ctx context.Context, userId, quizId uuid.UUID) (*dto.QuizResponse, error)
}

type quizService struct {
	uowFactory     unitofwork.RepositoryFactory
	generator      *quiz.Generator
	eventPublisher events.Publisher
	logger         logger.ILogger
}

func NewQuizService(uowFactory unitofwork.RepositoryFactory, generator *quiz.Generator, eventPublisher events.Publisher, log logger.ILogger) IQuizService {
	return &quizService{uowFactory: uowFactory, generator: generator, eventPublisher: eventPublisher, logger: log}
}

// Generate stores the quiz as processing, then moves it to ready with its
// questions or to failed with the reason. A failed quiz is still returned
// alongside the error.
func (s *quizService) Generate(ctx context.Context, userId uuid.UUID, req *dto.GenerateQuizRequest) (*dto.QuizResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := requireTopic(ctx, uow, userId, req.TopicId); err != nil {
		return nil, err
	}

	params := quiz.Params{
		TopicID:    req.TopicId.String(),
		Scope:      req.Scope,
		Count:      req.Count,
		Difficulty: req.Difficulty,
		Mode:       req.Mode,
	}.WithDefaults()

	record := entity.Quiz{
		Id:         uuid.New(),
		TopicId:    req.TopicId,
		Status:     model.QuizStatusProcessing,
		Difficulty: params.Difficulty,
		Length:     params.Count,
		Scope:      params.Scope,
		Mode:       params.Mode,
	}
	if err := uow.QuizRepository().Create(ctx, &record); err != nil {
		return nil, err
	}

	res, genErr := s.generator.Generate(ctx, params)
	if genErr != nil {
		record.Status = model.QuizStatusFailed
		record.ErrorMessage = genErr.Error()
		if err := uow.QuizRepository().Update(ctx, &record); err != nil {
			s.logger.Error(quizModule, "Failed to mark quiz failed", map[string]interface{}{"quiz_id": record.Id.String(), "error": err.Error()})
		}
		s.publish(ctx, events.QuizFailed(record.TopicId.String(), record.Id.String(), genErr.Error()))
		return toQuizResponse(&record), genErr
	}

	record.Questions = toQuizQuestions(res.Questions)
	record.Status = model.QuizStatusReady
	record.ContextDocs = res.ContextDocs
	record.ErrorMessage = ""

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	if err := uow.QuizRepository().ReplaceQuestions(ctx, record.Id, record.Questions); err != nil {
		_ = uow.Rollback()
		return nil, err
	}
	if err := uow.QuizRepository().Update(ctx, &record); err != nil {
		_ = uow.Rollback()
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.publish(ctx, events.QuizGenerated(record.TopicId.String(), record.Id.String(), len(record.Questions)))
	return toQuizResponse(&record), nil
}

func (s *quizService) Show(ctx context.Context, userId, quizId uuid.UUID) (*dto.QuizResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	record, err := uow.QuizRepository().FindOne(ctx, specification.ByID{ID: quizId}, specification.WithQuestions{})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("quiz %s: %w", quizId, serverutils.ErrNotFound)
	}
	if _, err := requireTopic(ctx, uow, userId, record.TopicId); err != nil {
		return nil, err
	}
	return toQuizResponse(record), nil
}

func (s *quizService) publish(ctx context.Context, evt events.Event) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		s.logger.Warn(quizModule, "Failed to publish quiz event", map[string]interface{}{
			"type":  evt.EventType(),
			"error": err.Error(),
		})
	}
}

func toQuizQuestions(questions []quiz.Question) []entity.QuizQuestion {
	out := make([]entity.QuizQuestion, len(questions))
	for i, q := range questions {
		opts := make([]entity.QuizOption, len(q.Options))
		for j, o := range q.Options {
			opts[j] = entity.QuizOption{Id: uuid.New(), Label: o.OptionID, Text: o.Text, IsCorrect: o.IsCorrect}
		}
		out[i] = entity.QuizQuestion{Id: uuid.New(), OrderIndex: i, Prompt: q.Prompt, Options: opts}
	}
	return out
}

func toQuizResponse(q *entity.Quiz) *dto.QuizResponse {
	res := &dto.QuizResponse{
		Id:           q.Id,
		TopicId:      q.TopicId,
		Status:       q.Status,
		Difficulty:   q.Difficulty,
		Length:       q.Length,
		Scope:        q.Scope,
		Mode:         q.Mode,
		ContextDocs:  q.ContextDocs,
		ErrorMessage: q.ErrorMessage,
		Questions:    make([]dto.QuizQuestionResponse, len(q.Questions)),
		CreatedAt:    q.CreatedAt,
	}
	for i, question := range q.Questions {
		opts := make([]dto.QuizOptionResponse, len(question.Options))
		for j, o := range question.Options {
			opts[j] = dto.QuizOptionResponse{OptionId: o.Label, Text: o.Text, IsCorrect: o.IsCorrect}
		}
		res.Questions[i] = dto.QuizQuestionResponse{Id: question.Id, Prompt: question.Prompt, Options: opts}
	}
	return res
}
