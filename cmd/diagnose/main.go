package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"studyrag-be/internal/bootstrap"
	"studyrag-be/internal/config"
	"studyrag-be/internal/mapper"
	"studyrag-be/internal/pkg/logger"
	"studyrag-be/internal/repository/specification"
	"studyrag-be/internal/repository/unitofwork"
	"studyrag-be/pkg/database"
	"studyrag-be/pkg/events"
	pktNats "studyrag-be/pkg/nats"
	"studyrag-be/pkg/rag/chat"
	"studyrag-be/pkg/rag/summarize"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

var (
	header  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
	failure = color.New(color.FgRed, color.Bold)
	dim     = color.New(color.FgHiBlack)
)

func usage() {
	fmt.Println("usage: diagnose <command> [args]")
	fmt.Println("  answer <topicId> <question>   run the chat pipeline once, no history")
	fmt.Println("  summarize <topicId>           dry-run the summary engine and print each step")
	fmt.Println("  logs [level] [module] [n]     tail the RAG log file")
	fmt.Println("  watch                         print artifact events from NATS")
}

func fatal(format string, args ...interface{}) {
	failure.Printf("✗ "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "answer":
		if len(os.Args) < 4 {
			usage()
			os.Exit(2)
		}
		runAnswer(ctx, cfg, os.Args[2], os.Args[3])
	case "summarize":
		if len(os.Args) < 3 {
			usage()
			os.Exit(2)
		}
		runSummarize(ctx, cfg, os.Args[2])
	case "logs":
		runLogs(cfg, os.Args[2:])
	case "watch":
		runWatch(ctx, cfg)
	default:
		usage()
		os.Exit(2)
	}
}

func engines(ctx context.Context, cfg *config.Config) (*bootstrap.Engines, unitofwork.RepositoryFactory) {
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, database.Options{})
	if err != nil {
		fatal("database: %v", err)
	}
	uowFactory := unitofwork.NewRepositoryFactory(db)
	ragLog := logger.NewIsolatedLogger(cfg.App.RagLogFilePath)

	e, err := bootstrap.NewEngines(cfg, uowFactory, bootstrap.NewRedisClient(ctx, cfg.App.RedisURL), ragLog)
	if err != nil {
		fatal("engines: %v", err)
	}
	return e, uowFactory
}

func runAnswer(ctx context.Context, cfg *config.Config, topicID, question string) {
	if _, err := uuid.Parse(topicID); err != nil {
		fatal("invalid topic id %q", topicID)
	}
	e, _ := engines(ctx, cfg)

	header.Println("=== ANSWER ===")
	dim.Printf("model=%s retriever=%s\n", cfg.Ai.LLMModel, cfg.Pipeline.VectorStore.Search.Retriever)

	res, err := e.Orchestrator.Answer(ctx, chat.Request{
		SessionID: "diagnose-" + uuid.NewString(),
		TopicID:   topicID,
		Query:     question,
	})
	if err != nil {
		fatal("answer: %v", err)
	}
	if res.EmptyContext {
		warn.Println("no context retrieved")
	}
	fmt.Println(res.Answer)

	header.Printf("\nSources (%d, rerank=%s)\n", len(res.Contexts), res.RerankStrategy)
	for i, ref := range res.Contexts {
		fmt.Printf("  %d. %s %s\n", i+1, ref.FileName, dim.Sprint(ref.DocumentID))
	}
}

func runSummarize(ctx context.Context, cfg *config.Config, topicID string) {
	id, err := uuid.Parse(topicID)
	if err != nil {
		fatal("invalid topic id %q", topicID)
	}
	e, uowFactory := engines(ctx, cfg)

	stored, err := uowFactory.NewUnitOfWork(ctx).ChunkRepository().FindAll(ctx,
		specification.ByTopicID{TopicID: id},
		specification.ActiveOnly{},
		specification.ChunkReadingOrder{},
	)
	if err != nil {
		fatal("load chunks: %v", err)
	}
	if len(stored) == 0 {
		warn.Println("topic has no active chunks")
		return
	}

	m := mapper.NewChunkMapper()
	chunks := make([]summarize.Chunk, len(stored))
	for i, c := range stored {
		f := m.ToFragment(c, nil)
		chunks[i] = summarize.Chunk{Content: f.Content, Metadata: f.Metadata}
	}

	header.Printf("=== SUMMARIZE %s (%d chunks) ===\n", topicID, len(chunks))
	engine := summarize.NewEngine(e.LLM, cfg.Pipeline.Summaries, logger.NewNopLogger(),
		summarize.WithObserver(func(s summarize.Step) {
			dim.Printf("  [%-12s] %-10s round=%d units=%d tokens=%d\n", s.Mode, s.Stage, s.Round, s.Units, s.Tokens)
		}),
	)
	res, err := engine.Summarize(ctx, chunks, summarize.Preferences{})
	if err != nil {
		fatal("summarize: %v", err)
	}

	success.Printf("\n✓ path=%s input_tokens=%d groups=%d dropped=%d calls=%d\n",
		res.Stats.Path, res.Stats.InputTokens, res.Stats.Groups, res.Stats.DroppedGroups, res.Stats.GenerationCalls)
	header.Println("\nShort")
	fmt.Println(res.Short)
	header.Println("\nKey concepts")
	fmt.Println(res.KeyConcepts)
	header.Println("\nLong")
	fmt.Println(res.Long)
}

func runLogs(cfg *config.Config, args []string) {
	var level, module string
	limit := 50
	if len(args) > 0 {
		level = strings.ToUpper(args[0])
	}
	if len(args) > 1 {
		module = args[1]
	}
	if len(args) > 2 {
		n, err := strconv.Atoi(args[2])
		if err != nil || n <= 0 {
			fatal("invalid limit %q", args[2])
		}
		limit = n
	}

	entries, err := logger.ReadEntries(cfg.App.RagLogFilePath, level, module, limit)
	if err != nil {
		fatal("read %s: %v", cfg.App.RagLogFilePath, err)
	}
	header.Printf("=== %s (%d entries) ===\n", cfg.App.RagLogFilePath, len(entries))
	for _, entry := range entries {
		c := dim
		switch entry.Level {
		case "ERROR":
			c = failure
		case "WARN":
			c = warn
		case "INFO":
			c = success
		}
		c.Printf("%s %-5s ", entry.Timestamp, entry.Level)
		fmt.Printf("[%s] %s", entry.Module, entry.Message)
		if len(entry.Details) > 0 {
			dim.Printf(" %v", entry.Details)
		}
		fmt.Println()
	}
}

func runWatch(ctx context.Context, cfg *config.Config) {
	sub, err := pktNats.NewSubscriber(cfg.App.NatsURL, logger.NewNopLogger())
	if err != nil {
		fatal("nats: %v", err)
	}
	defer sub.Close()

	durable := "diagnose-" + uuid.NewString()[:8]
	err = sub.Subscribe(ctx, ">", durable, func(_ context.Context, evt events.Event) error {
		success.Printf("%s ", evt.Timestamp().Format("15:04:05"))
		header.Printf("%-18s ", evt.EventType())
		fmt.Println(evt.Payload())
		return nil
	})
	if err != nil {
		fatal("subscribe: %v", err)
	}

	header.Printf("Watching %s on %s (Ctrl+C to stop)\n", pktNats.Subject(">"), cfg.App.NatsURL)
	<-ctx.Done()
}
