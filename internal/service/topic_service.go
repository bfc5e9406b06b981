package service

import (
	"context"
	"fmt"

	"studyrag-be/internal/dto"
	"studyrag-be/internal/entity"
	"studyrag-be/internal/pkg/serverutils"
	"studyrag-be/internal/repository/specification"
	"studyrag-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type ITopicService interface {
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateTopicRequest) (*dto.TopicResponse, error)
	GetAll(ctx context.Context, userId uuid.UUID) ([]*dto.TopicResponse, error)
}

type topicService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewTopicService(uowFactory unitofwork.RepositoryFactory) ITopicService {
	return &topicService{uowFactory: uowFactory}
}

func (s *topicService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateTopicRequest) (*dto.TopicResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	topic := entity.Topic{
		Id:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		UserId:      userId,
	}
	if err := uow.TopicRepository().Create(ctx, &topic); err != nil {
		return nil, err
	}
	return toTopicResponse(&topic), nil
}

func (s *topicService) GetAll(ctx context.Context, userId uuid.UUID) ([]*dto.TopicResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	topics, err := uow.TopicRepository().FindAll(ctx, specification.UserOwnedBy{UserID: userId}, specification.Newest)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.TopicResponse, len(topics))
	for i, t := range topics {
		res[i] = toTopicResponse(t)
	}
	return res, nil
}

func toTopicResponse(t *entity.Topic) *dto.TopicResponse {
	return &dto.TopicResponse{Id: t.Id, Name: t.Name, Description: t.Description, CreatedAt: t.CreatedAt}
}

// requireTopic loads a topic owned by userId or fails with ErrNotFound.
func requireTopic(ctx context.Context, uow unitofwork.UnitOfWork, userId, topicId uuid.UUID) (*entity.Topic, error) {
	topic, err := uow.TopicRepository().FindOne(ctx,
		specification.ByID{ID: topicId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if topic == nil {
		return nil, fmt.Errorf("topic %s: %w", topicId, serverutils.ErrNotFound)
	}
	return topic, nil
}
