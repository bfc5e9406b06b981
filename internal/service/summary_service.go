package service

import (
	"context"
	"fmt"

	"studyrag-be/internal/dto"
	"studyrag-be/internal/entity"
	"studyrag-be/internal/mapper"
	"studyrag-be/internal/pkg/logger"
	"studyrag-be/internal/pkg/serverutils"
	"studyrag-be/internal/repository/specification"
	"studyrag-be/internal/repository/unitofwork"
	"studyrag-be/pkg/events"
	"studyrag-be/pkg/rag/summarize"

	"github.com/google/uuid"
)

const summaryModule = "summary"

type ISummaryService interface {
	Summarize(ctx context.Context, userId uuid.UUID, req *dto.SummarizeTopicRequest) (*dto.TopicSummaryResponse, error)
	Latest(ctx context.Context, userId, topicId uuid.UUID) (*dto.TopicSummaryResponse, error)
}

type summaryService struct {
	uowFactory     unitofwork.RepositoryFactory
	engine         *summarize.Engine
	eventPublisher events.Publisher
	logger         logger.ILogger
	mapper         *mapper.ChunkMapper
}

func NewSummaryService(uowFactory unitofwork.RepositoryFactory, engine *summarize.Engine, eventPublisher events.Publisher, log logger.ILogger) ISummaryService {
	return &summaryService{
		uowFactory:     uowFactory,
		engine:         engine,
		eventPublisher: eventPublisher,
		logger:         log,
		mapper:         mapper.NewChunkMapper(),
	}
}

// Summarize runs the engine over every active chunk of the topic in reading
// order and stores the result as a new summary row.
func (s *summaryService) Summarize(ctx context.Context, userId uuid.UUID, req *dto.SummarizeTopicRequest) (*dto.TopicSummaryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := requireTopic(ctx, uow, userId, req.TopicId); err != nil {
		return nil, err
	}

	stored, err := uow.ChunkRepository().FindAll(ctx,
		specification.ByTopicID{TopicID: req.TopicId},
		specification.ActiveOnly{},
		specification.ChunkReadingOrder{},
	)
	if err != nil {
		return nil, err
	}
	chunks := make([]summarize.Chunk, len(stored))
	for i, c := range stored {
		f := s.mapper.ToFragment(c, nil)
		chunks[i] = summarize.Chunk{Content: f.Content, Metadata: f.Metadata}
	}

	res, err := s.engine.Summarize(ctx, chunks, req.Preferences)
	if err != nil {
		s.logger.Error(summaryModule, "Summarization failed", map[string]interface{}{
			"topic_id": req.TopicId.String(),
			"chunks":   len(chunks),
			"error":    err.Error(),
		})
		return nil, err
	}

	summary := entity.TopicSummary{
		Id:          uuid.New(),
		TopicId:     req.TopicId,
		Short:       res.Short,
		Long:        res.Long,
		KeyConcepts: res.KeyConcepts,
		Path:        res.Stats.Path,
		Stats:       statsMap(res.Stats),
	}
	if err := uow.SummaryRepository().Create(ctx, &summary); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		evt := events.SummaryGenerated(req.TopicId.String(), summary.Id.String(), summary.Path, res.Stats.GenerationCalls)
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.logger.Warn(summaryModule, "Failed to publish summary.generated", map[string]interface{}{"error": err.Error()})
		}
	}
	return toSummaryResponse(&summary), nil
}

func (s *summaryService) Latest(ctx context.Context, userId, topicId uuid.UUID) (*dto.TopicSummaryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := requireTopic(ctx, uow, userId, topicId); err != nil {
		return nil, err
	}
	summary, err := uow.SummaryRepository().FindOne(ctx, specification.ByTopicID{TopicID: topicId}, specification.Newest)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return nil, fmt.Errorf("summary for topic %s: %w", topicId, serverutils.ErrNotFound)
	}
	return toSummaryResponse(summary), nil
}

func statsMap(st summarize.Stats) map[string]interface{} {
	perMode := func(m map[summarize.Mode]int) map[string]interface{} {
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			out[string(k)] = v
		}
		return out
	}
	return map[string]interface{}{
		"path":             st.Path,
		"input_tokens":     st.InputTokens,
		"groups":           st.Groups,
		"dropped_groups":   st.DroppedGroups,
		"map_calls":        perMode(st.MapCalls),
		"collapse_rounds":  perMode(st.CollapseRounds),
		"generation_calls": st.GenerationCalls,
	}
}

func toSummaryResponse(s *entity.TopicSummary) *dto.TopicSummaryResponse {
	return &dto.TopicSummaryResponse{
		Id:          s.Id,
		TopicId:     s.TopicId,
		Short:       s.Short,
		Long:        s.Long,
		KeyConcepts: s.KeyConcepts,
		Path:        s.Path,
		Stats:       s.Stats,
		CreatedAt:   s.CreatedAt,
	}
}
