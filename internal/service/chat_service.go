package service

import (
	"context"

	"studyrag-be/internal/dto"
	"studyrag-be/internal/repository/unitofwork"
	"studyrag-be/pkg/rag/chat"

	"github.com/google/uuid"
)

type IChatService interface {
	Answer(ctx context.Context, userId uuid.UUID, req *dto.ChatAnswerRequest) (*dto.ChatAnswerResponse, error)
}

type chatService struct {
	uowFactory   unitofwork.RepositoryFactory
	orchestrator *chat.Orchestrator
}

func NewChatService(uowFactory unitofwork.RepositoryFactory, orchestrator *chat.Orchestrator) IChatService {
	return &chatService{uowFactory: uowFactory, orchestrator: orchestrator}
}

// Answer starts a new session when the request carries none. History is
// kept per user, so a session id reused by another user starts empty.
func (s *chatService) Answer(ctx context.Context, userId uuid.UUID, req *dto.ChatAnswerRequest) (*dto.ChatAnswerResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := requireTopic(ctx, uow, userId, req.TopicId); err != nil {
		return nil, err
	}

	sessionId := req.SessionId
	if sessionId == "" {
		sessionId = uuid.NewString()
	}
	chatReq := chat.Request{
		SessionID:   memoryKey(userId, sessionId),
		TopicID:     req.TopicId.String(),
		Query:       req.Question,
		Preferences: req.Preferences,
	}
	if req.DocumentId != nil {
		chatReq.DocumentID = req.DocumentId.String()
	}

	res, err := s.orchestrator.Answer(ctx, chatReq)
	if err != nil {
		return nil, err
	}
	contexts := res.Contexts
	if contexts == nil {
		contexts = []chat.ContextRef{}
	}
	return &dto.ChatAnswerResponse{
		SessionId:      sessionId,
		Answer:         res.Answer,
		Contexts:       contexts,
		EmptyContext:   res.EmptyContext,
		RerankStrategy: res.RerankStrategy,
	}, nil
}

func memoryKey(userId uuid.UUID, sessionId string) string {
	return userId.String() + ":" + sessionId
}
