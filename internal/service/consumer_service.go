package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"studyrag-be/internal/dto"
	"studyrag-be/internal/entity"
	"studyrag-be/internal/model"
	"studyrag-be/internal/pkg/logger"
	"studyrag-be/internal/repository/specification"
	"studyrag-be/internal/repository/unitofwork"
	"studyrag-be/pkg/embedding"
	"studyrag-be/pkg/events"
	"studyrag-be/pkg/utils"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

const (
	ingestModule = "ingest"

	ChunkSize    = 1500
	ChunkOverlap = 200
)

type IConsumerService interface {
	Consume(ctx context.Context) error
	// Ingest splits, embeds and stores one document, replacing its chunks.
	Ingest(ctx context.Context, msg dto.DocumentIngestMessage) (int, error)
}

type consumerService struct {
	subscriber        message.Subscriber
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	eventPublisher    events.Publisher
	logger            logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	eventPublisher events.Publisher,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:        subscriber,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		eventPublisher:    eventPublisher,
		logger:            log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.DocumentIngestMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error(ingestModule, "Invalid ingest message, dropping", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack()
		return
	}

	chunks, err := cs.Ingest(ctx, payload)
	if err != nil {
		cs.logger.Error(ingestModule, "Document ingestion failed", map[string]interface{}{
			"document_id": payload.DocumentId.String(),
			"error":       err.Error(),
		})
		cs.markDocument(ctx, payload.DocumentId, model.DocumentStatusFailed, 0)
		msg.Ack()
		return
	}

	cs.markDocument(ctx, payload.DocumentId, model.DocumentStatusIngested, chunks)
	if cs.eventPublisher != nil {
		evt := events.DocumentIngested(payload.TopicId.String(), payload.DocumentId.String(), chunks)
		if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
			cs.logger.Warn(ingestModule, "Failed to publish document.ingested", map[string]interface{}{"error": err.Error()})
		}
	}
	msg.Ack()
}

func (cs *consumerService) Ingest(ctx context.Context, payload dto.DocumentIngestMessage) (int, error) {
	var chunks []*entity.Chunk
	for _, page := range payload.Pages {
		for _, text := range utils.SplitText(page.Text, ChunkSize, ChunkOverlap) {
			if strings.TrimSpace(text) == "" {
				continue
			}
			vec, err := embedding.EmbedDocument(ctx, cs.embeddingProvider, text)
			if err != nil {
				return 0, fmt.Errorf("embed page %d chunk %d: %w", page.Page, len(chunks), err)
			}
			chunks = append(chunks, &entity.Chunk{
				Id:         uuid.New(),
				TopicId:    payload.TopicId,
				DocumentId: payload.DocumentId,
				FileName:   payload.FileName,
				Page:       page.Page,
				ChunkIndex: len(chunks),
				Content:    text,
				Embedding:  vec,
				Metadata:   map[string]interface{}{"source": payload.FileName},
				IsActive:   true,
			})
		}
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	if err := uow.ChunkRepository().DeleteByDocumentId(ctx, payload.DocumentId); err != nil {
		_ = uow.Rollback()
		return 0, err
	}
	if err := uow.ChunkRepository().CreateBulk(ctx, chunks); err != nil {
		_ = uow.Rollback()
		return 0, err
	}
	if err := uow.Commit(); err != nil {
		return 0, err
	}

	cs.logger.Info(ingestModule, "Document ingested", map[string]interface{}{
		"document_id": payload.DocumentId.String(),
		"pages":       len(payload.Pages),
		"chunks":      len(chunks),
	})
	return len(chunks), nil
}

func (cs *consumerService) markDocument(ctx context.Context, documentId uuid.UUID, status string, chunks int) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	doc, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: documentId})
	if err != nil || doc == nil {
		return
	}
	doc.Status = status
	doc.ChunkCount = chunks
	if err := uow.DocumentRepository().Update(ctx, doc); err != nil {
		cs.logger.Warn(ingestModule, "Failed to update document status", map[string]interface{}{
			"document_id": documentId.String(),
			"error":       err.Error(),
		})
	}
}
