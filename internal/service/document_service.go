package service

import (
	"context"
	"encoding/json"
	"fmt"

	"studyrag-be/internal/dto"
	"studyrag-be/internal/entity"
	"studyrag-be/internal/model"
	"studyrag-be/internal/pkg/logger"
	"studyrag-be/internal/pkg/serverutils"
	"studyrag-be/internal/repository/specification"
	"studyrag-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IDocumentService interface {
	Ingest(ctx context.Context, userId uuid.UUID, req *dto.IngestDocumentRequest) (*dto.IngestDocumentResponse, error)
	SetActive(ctx context.Context, userId uuid.UUID, req *dto.SetDocumentActiveRequest) (*dto.SetDocumentActiveResponse, error)
}

type documentService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	logger           logger.ILogger
}

func NewDocumentService(uowFactory unitofwork.RepositoryFactory, publisherService IPublisherService, log logger.ILogger) IDocumentService {
	return &documentService{uowFactory: uowFactory, publisherService: publisherService, logger: log}
}

// Ingest records the document as pending and queues its pages; chunks are
// written by the consumer.
func (s *documentService) Ingest(ctx context.Context, userId uuid.UUID, req *dto.IngestDocumentRequest) (*dto.IngestDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := requireTopic(ctx, uow, userId, req.TopicId); err != nil {
		return nil, err
	}

	doc := entity.Document{
		Id:       uuid.New(),
		TopicId:  req.TopicId,
		FileName: req.FileName,
		Status:   model.DocumentStatusPending,
		IsActive: true,
	}
	if err := uow.DocumentRepository().Create(ctx, &doc); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(dto.DocumentIngestMessage{
		DocumentId: doc.Id,
		TopicId:    doc.TopicId,
		FileName:   doc.FileName,
		Pages:      req.Pages,
	})
	if err != nil {
		return nil, err
	}
	if err := s.publisherService.Publish(ctx, payload); err != nil {
		return nil, fmt.Errorf("queue document %s: %w", doc.Id, err)
	}

	s.logger.Info(ingestModule, "Document queued", map[string]interface{}{
		"document_id": doc.Id.String(),
		"topic_id":    doc.TopicId.String(),
		"pages":       len(req.Pages),
	})
	return &dto.IngestDocumentResponse{Id: doc.Id, Status: doc.Status}, nil
}

// SetActive flips the document and all its chunks in one transaction.
// Inactive chunks are invisible to chat, summaries and quizzes.
func (s *documentService) SetActive(ctx context.Context, userId uuid.UUID, req *dto.SetDocumentActiveRequest) (*dto.SetDocumentActiveResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	doc, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: req.Id})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document %s: %w", req.Id, serverutils.ErrNotFound)
	}
	if _, err := requireTopic(ctx, uow, userId, doc.TopicId); err != nil {
		return nil, err
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	doc.IsActive = *req.IsActive
	if err := uow.DocumentRepository().Update(ctx, doc); err != nil {
		_ = uow.Rollback()
		return nil, err
	}
	n, err := uow.ChunkRepository().SetActiveByDocumentId(ctx, doc.Id, doc.IsActive)
	if err != nil {
		_ = uow.Rollback()
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return &dto.SetDocumentActiveResponse{Id: doc.Id, IsActive: doc.IsActive, ChunksUpdated: n}, nil
}
