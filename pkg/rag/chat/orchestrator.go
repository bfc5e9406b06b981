package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"studyrag-be/internal/pkg/logger"
	"studyrag-be/pkg/llm"
	"studyrag-be/pkg/rag"
	"studyrag-be/pkg/rag/pipeline"
	"studyrag-be/pkg/rag/retrieval"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const logModule = "rag.chat"

var tracer = otel.Tracer("studyrag/rag/chat")

var ErrEmptyQuestion = errors.New("question is empty")

const (
	RetrieverMultiQuery = "multiquery"
	RetrieverVanilla    = "vanilla"
)

type Config struct {
	FetchK       int    `yaml:"fetch_k"`
	TopK         int    `yaml:"top_k"`
	Retriever    string `yaml:"retriever"`
	Expansions   int    `yaml:"expansions"`
	UseHyde      bool   `yaml:"use_hyde"`
	HydeN        int    `yaml:"hyde_n"`
	RerankTopK   int    `yaml:"rerank_top_k"`
	HistoryTurns int    `yaml:"history_turns"`
}

func DefaultConfig() Config {
	return Config{
		FetchK:       120,
		TopK:         30,
		Retriever:    RetrieverMultiQuery,
		Expansions:   3,
		HydeN:        1,
		HistoryTurns: 6,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FetchK <= 0 {
		c.FetchK = d.FetchK
	}
	if c.TopK <= 0 {
		c.TopK = d.TopK
	}
	if c.Retriever == "" || c.Retriever == "selfquery" {
		c.Retriever = d.Retriever
	}
	if c.Expansions <= 0 {
		c.Expansions = d.Expansions
	}
	if c.HydeN <= 0 {
		c.HydeN = d.HydeN
	}
	if c.HistoryTurns <= 0 {
		c.HistoryTurns = d.HistoryTurns
	}
	return c
}

func (c Config) plan(filter retrieval.Filter) pipeline.Plan {
	p := pipeline.Plan{FetchK: c.FetchK, TopK: c.TopK, RerankTopK: c.RerankTopK, Filter: filter}
	if c.Retriever == RetrieverMultiQuery {
		p.Rewrites = c.Expansions
	}
	if c.UseHyde {
		p.Hyde = c.HydeN
	}
	return p
}

type Request struct {
	SessionID   string
	TopicID     string
	Query       string
	Preferences Preferences
	DocumentID  string
}

// ContextRef names the source of one context used for an answer.
type ContextRef struct {
	FileName   string `json:"file_name"`
	DocumentID string `json:"document_id"`
}

type Response struct {
	Answer         string
	Contexts       []ContextRef
	EmptyContext   bool
	RerankStrategy string
}

type Option func(*Orchestrator)

// WithTemplate replaces DefaultTemplate.
func WithTemplate(t string) Option {
	return func(o *Orchestrator) {
		if strings.TrimSpace(t) != "" {
			o.template = t
		}
	}
}

// WithLLMOptions sets options passed on every answer generation.
func WithLLMOptions(opts ...llm.Option) Option {
	return func(o *Orchestrator) { o.llmOpts = opts }
}

// Orchestrator answers one question per call: RETRIEVE then GENERATE.
type Orchestrator struct {
	llm       llm.LLMProvider
	retrieval *pipeline.Retrieval
	memory    Memory
	cfg       Config
	logger    logger.ILogger
	template  string
	llmOpts   []llm.Option
}

func NewOrchestrator(provider llm.LLMProvider, retrieval *pipeline.Retrieval, memory Memory, cfg Config, log logger.ILogger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		llm:       provider,
		retrieval: retrieval,
		memory:    memory,
		cfg:       cfg.withDefaults(),
		logger:    log,
		template:  DefaultTemplate,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Config() Config { return o.cfg }

// Answer runs one turn. The user turn and the answer are appended to the
// session memory together, only once the turn succeeded.
func (o *Orchestrator) Answer(ctx context.Context, req Request) (Response, error) {
	question := strings.TrimSpace(req.Query)
	if question == "" {
		return Response{}, ErrEmptyQuestion
	}

	ctx, span := tracer.Start(ctx, "chat.turn")
	defer span.End()
	span.SetAttributes(attribute.String("rag.topic_id", req.TopicID))

	history, err := o.memory.Load(ctx, req.SessionID)
	if err != nil {
		return Response{}, fmt.Errorf("load conversation %s: %w", req.SessionID, err)
	}
	user := Turn{Role: RoleUser, Content: question}
	turns := append(append(make([]Turn, 0, len(history)+1), history...), user)

	// RETRIEVE
	contexts, strategy, err := o.retrieve(ctx, turns, req)
	if err != nil {
		span.RecordError(err)
		o.logger.Error(logModule, "Retrieval failed", map[string]interface{}{
			"session_id": req.SessionID,
			"topic_id":   req.TopicID,
			"error":      err.Error(),
		})
		return Response{}, err
	}
	span.SetAttributes(attribute.Int("rag.contexts", len(contexts)))

	// GENERATE
	resp := Response{RerankStrategy: strategy, Contexts: make([]ContextRef, len(contexts))}
	for i, f := range contexts {
		resp.Contexts[i] = ContextRef{
			FileName:   rag.MetaString(f.Metadata, rag.MetaFileName),
			DocumentID: f.DocumentID(),
		}
	}

	if len(contexts) == 0 {
		resp.Answer = EmptyContextMessage
		resp.EmptyContext = true
	} else {
		prompt := BuildPrompt(
			o.template,
			PreferencesBlock(req.Preferences),
			HistoryBlock(turns, o.cfg.HistoryTurns),
			question,
			ContextBlock(contexts, o.cfg.TopK),
		)
		answer, err := rag.Generate(ctx, o.llm, prompt, rag.PlainTextRetry, o.llmOpts...)
		if err != nil {
			span.RecordError(err)
			o.logger.Error(logModule, "Answer generation failed", map[string]interface{}{
				"session_id": req.SessionID,
				"error":      err.Error(),
			})
			return Response{}, err
		}
		resp.Answer = answer
	}

	if err := o.memory.Append(ctx, req.SessionID, user, Turn{Role: RoleAssistant, Content: resp.Answer}); err != nil {
		return Response{}, fmt.Errorf("append conversation %s: %w", req.SessionID, err)
	}

	o.logger.Info(logModule, "Question answered", map[string]interface{}{
		"session_id":    req.SessionID,
		"topic_id":      req.TopicID,
		"contexts":      len(contexts),
		"empty_context": resp.EmptyContext,
		"strategy":      strategy,
	})
	return resp, nil
}

// retrieve only searches when the latest turn is the user's.
func (o *Orchestrator) retrieve(ctx context.Context, turns []Turn, req Request) ([]rag.Fragment, string, error) {
	if len(turns) == 0 || turns[len(turns)-1].Role != RoleUser {
		return nil, "", nil
	}
	filter := retrieval.Filter{TopicID: req.TopicID, OnlyActive: true, DocumentID: req.DocumentID}
	res, err := o.retrieval.Run(ctx, turns[len(turns)-1].Content, o.cfg.plan(filter))
	if err != nil {
		return nil, "", err
	}
	return res.Fragments, res.RerankStrategy, nil
}
