package bootstrap

import (
	"context"
	"fmt"
	"log"

	"studyrag-be/internal/config"
	"studyrag-be/internal/controller"
	"studyrag-be/internal/pkg/logger"
	"studyrag-be/internal/repository/memory"
	"studyrag-be/internal/repository/unitofwork"
	"studyrag-be/internal/service"
	"studyrag-be/pkg/embedding"
	embeddingFactory "studyrag-be/pkg/embedding/factory"
	"studyrag-be/pkg/events"
	"studyrag-be/pkg/llm"
	"studyrag-be/pkg/llm/factory"
	pktNats "studyrag-be/pkg/nats"
	"studyrag-be/pkg/rag/chat"
	"studyrag-be/pkg/rag/expand"
	"studyrag-be/pkg/rag/pipeline"
	"studyrag-be/pkg/rag/quiz"
	"studyrag-be/pkg/rag/rerank"
	"studyrag-be/pkg/rag/retrieval"
	"studyrag-be/pkg/rag/summarize"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Engines are the RAG components shared by the HTTP services and the
// diagnose CLI.
type Engines struct {
	LLM          llm.LLMProvider
	Embedder     embedding.EmbeddingProvider
	Retrieval    *pipeline.Retrieval
	Orchestrator *chat.Orchestrator
	Summarizer   *summarize.Engine
	Quiz         *quiz.Generator
	ChunkIndex   *service.ChunkIndex
}

type Container struct {
	// Controllers
	TopicController    controller.ITopicController
	DocumentController controller.IDocumentController
	ChatController     controller.IChatController
	SummaryController  controller.ISummaryController
	QuizController     controller.IQuizController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Engines    *Engines
	UowFactory unitofwork.RepositoryFactory
	Logger     logger.ILogger

	closers []func()
}

// NewEngines builds the RAG stack from configuration. ragLog receives the
// LLM and retrieval trace.
func NewEngines(cfg *config.Config, uowFactory unitofwork.RepositoryFactory, rdb *redis.Client, ragLog logger.ILogger) (*Engines, error) {
	registry := factory.NewRegistry(factory.Spec{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		BaseURL:  cfg.Ai.LLMBaseURL,
		APIKey:   cfg.Ai.LLMAPIKey,
	})
	if _, err := registry.Default(); err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	router := factory.NewRouter(registry)

	embedder, err := embeddingFactory.NewEmbeddingProvider(
		cfg.Ai.EmbeddingProvider,
		cfg.Ai.EmbeddingModel,
		cfg.Ai.EmbeddingBaseURL,
		cfg.EmbeddingAPIKey(),
	)
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}
	if rdb != nil {
		embedder = embedding.NewCachedProvider(embedder, rdb, cfg.App.EmbeddingCacheTTL, ragLog)
	}

	p := cfg.Pipeline
	genOpts := []llm.Option{llm.WithTemperature(p.LLM.Temperature), llm.WithMaxTokens(p.LLM.MaxOutputTokens)}

	chunkIndex := service.NewChunkIndex(uowFactory, p.VectorStore.Search.MinSimilarity)
	retriever := retrieval.NewVectorRetriever(embedding.QueryEmbedder{Provider: embedder}, chunkIndex)
	fusion := retrieval.NewFusion(retriever, ragLog,
		retrieval.WithConcurrency(p.VectorStore.Search.Concurrency),
		retrieval.WithMaxResults(p.VectorStore.Search.MaxResults),
	)
	expander := expand.NewExpander(router, ragLog)

	var chain *rerank.Chain
	if p.Reranker.Enabled() {
		chain = rerank.Build(p.Reranker, ragLog)
	}
	chatRetrieval := pipeline.NewRetrieval(expander, fusion, chain, ragLog)

	quizRetrieval := pipeline.NewRetrieval(expander, fusion, nil, ragLog)
	if p.Quiz.Rerank {
		quizRetrieval = chatRetrieval
	}

	return &Engines{
		LLM:       router,
		Embedder:  embedder,
		Retrieval: chatRetrieval,
		Orchestrator: chat.NewOrchestrator(router, chatRetrieval, memory.NewConversationRepository(), p.ChatOrchestratorConfig(), ragLog,
			chat.WithTemplate(p.Chat.PromptTemplate),
			chat.WithLLMOptions(genOpts...),
		),
		Summarizer: summarize.NewEngine(router, p.Summaries, ragLog),
		Quiz: quiz.NewGenerator(router, quizRetrieval, chunkIndex, quiz.Config{
			Retriever:       p.VectorStore.Search.Retriever,
			MaxContextChars: p.Quiz.MaxContextChars,
		}, ragLog, genOpts...),
		ChunkIndex: chunkIndex,
	}, nil
}

// NewRedisClient connects to REDIS_URL, or returns nil when Redis is not
// reachable. The embedding cache is skipped without it.
func NewRedisClient(ctx context.Context, url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis, embedding cache disabled: %v", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	ctx := context.Background()
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	ragLogger := logger.NewIsolatedLogger(cfg.App.RagLogFilePath)

	c := &Container{UowFactory: uowFactory, Logger: sysLogger}

	// Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermillLogger)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// NATS is optional; artifact events are skipped without it.
	var eventPublisher events.Publisher
	natsPub, err := pktNats.NewPublisher(ctx, cfg.App.NatsURL, sysLogger)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		eventPublisher = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}

	rdb := NewRedisClient(ctx, cfg.App.RedisURL)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	engines, err := NewEngines(cfg, uowFactory, rdb, ragLogger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Engines = engines
	log.Printf("[INFO] Using LLM Provider: %s (%s), embeddings: %s (%s)",
		cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.EmbeddingProvider, engines.Embedder.Model())

	publisherService := service.NewPublisherService(cfg.App.IngestTopic, pubSub)
	c.ConsumerService = service.NewConsumerService(
		pubSub,
		cfg.App.IngestTopic,
		uowFactory,
		engines.Embedder,
		eventPublisher,
		sysLogger,
	)

	topicService := service.NewTopicService(uowFactory)
	documentService := service.NewDocumentService(uowFactory, publisherService, sysLogger)
	chatService := service.NewChatService(uowFactory, engines.Orchestrator)
	summaryService := service.NewSummaryService(uowFactory, engines.Summarizer, eventPublisher, sysLogger)
	quizService := service.NewQuizService(uowFactory, engines.Quiz, eventPublisher, sysLogger)

	c.TopicController = controller.NewTopicController(topicService)
	c.DocumentController = controller.NewDocumentController(documentService)
	c.ChatController = controller.NewChatController(chatService)
	c.SummaryController = controller.NewSummaryController(summaryService)
	c.QuizController = controller.NewQuizController(quizService)

	c.closers = append(c.closers, func() { _ = sysLogger.Sync(); _ = ragLogger.Sync() })
	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
