// Package quiz writes multiple-choice quizzes grounded in a topic's chunks.
package quiz

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

const logModule = "rag.quiz"

var tracer = otel.Tracer("studyrag/rag/quiz")

var (
	ErrNoActiveChunks = errors.New("no active chunks for this topic")
	ErrEmptyContext   = errors.New("retrieved empty context for quiz generation")
	ErrInvalidPacket  = errors.New("quiz packet is invalid")
)

const (
	ModeMultiQuery = "multiquery"
	ModeHyde       = "hyde"
	ModeBoth       = "both"
)

const DefaultScope = "Comprehensive overview"

// StrictJSONRetry is appended when the first completion is not JSON.
const StrictJSONRetry = "Return ONLY minified JSON. No markdown."

const systemBase = "You are a meticulous quiz author. You create multiple choice questions grounded strictly in the provided study context. " +
	"Avoid trivia outside of the context. Questions must be unambiguous, single-correct."

const userInstructions = "Create %d %s questions for a study quiz.\n" +
	"Each question must have exactly 4 options labeled A, B, C, D.\n" +
	"Exactly one option has is_correct=true. Ensure that the correct option is randomly positioned in the final JSON, and not always the same label.\n" +
	"Base questions only on the CONTEXT snippets.\n" +
	"Return pure JSON matching this schema: %s. No prose."

type Params struct {
	TopicID         string
	Scope           string
	Count           int    `validate:"gte=1,lte=50"`
	Difficulty      string `validate:"oneof=easy medium hard"`
	Mode            string `validate:"oneof=multiquery hyde both"`
	Expansions      int
	HydeN           int
	FetchK          int
	TopKAfterRerank int
}

// WithDefaults fills unset fields.
func (p Params) WithDefaults() Params {
	if strings.TrimSpace(p.Scope) == "" {
		p.Scope = DefaultScope
	}
	if p.Count <= 0 {
		p.Count = 10
	}
	if p.Difficulty == "" {
		p.Difficulty = "medium"
	}
	if p.Mode == "" {
		p.Mode = ModeMultiQuery
	}
	if p.Expansions <= 0 {
		p.Expansions = 4
	}
	if p.HydeN <= 0 {
		p.HydeN = 2
	}
	if p.FetchK <= 0 {
		p.FetchK = 20
	}
	if p.TopKAfterRerank <= 0 {
		p.TopKAfterRerank = 12
	}
	return p
}

type Config struct {
	Retriever       string `yaml:"retriever"`
	MaxContextChars int    `yaml:"max_context_chars"`
}

// ActiveChunkCounter reports how many searchable chunks a topic has.
type ActiveChunkCounter interface {
	CountActive(ctx context.Context, topicID string) (int64, error)
}

type Result struct {
	Questions   []Question
	ContextDocs int
	Mode        string
	Scope       string
}

type Generator struct {
	llm       llm.LLMProvider
	retrieval *pipeline.Retrieval
	chunks    ActiveChunkCounter
	cfg       Config
	logger    logger.ILogger
	llmOpts   []llm.Option
}

func NewGenerator(provider llm.LLMProvider, retrieval *pipeline.Retrieval, chunks ActiveChunkCounter, cfg Config, log logger.ILogger, opts ...llm.Option) *Generator {
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = 50000
	}
	if cfg.Retriever == "" || cfg.Retriever == "selfquery" {
		cfg.Retriever = ModeMultiQuery
	}
	return &Generator{llm: provider, retrieval: retrieval, chunks: chunks, cfg: cfg, logger: log, llmOpts: opts}
}

// FormatContext numbers fragments as [CTX i] and stops at maxChars. Blank
// fragments are skipped but keep their number.
func FormatContext(frags []rag.Fragment, maxChars int) string {
	var parts []string
	used := 0
	for i, f := range frags {
		chunk := strings.TrimSpace(f.Content)
		if chunk == "" {
			continue
		}
		header := fmt.Sprintf("[CTX %d]\n", i+1)
		headerLen := len([]rune(header))
		left := maxChars - used - headerLen
		if left <= 0 {
			break
		}
		runes := []rune(chunk)
		if len(runes) > left {
			runes = runes[:left]
		}
		parts = append(parts, header+string(runes))
		used += headerLen + len(runes)
	}
	return strings.Join(parts, "\n\n")
}

// Prompt assembles the full generation prompt.
func Prompt(context string, count int, difficulty string) string {
	user := fmt.Sprintf(userInstructions, count, difficulty, PacketSchema)
	return systemBase + "\n\nCONTEXT:\n" + context + "\n\nUser:\n" + user
}

// Generate retrieves context for the scope and asks for a quiz. The returned
// questions are normalized and ready to persist.
func (g *Generator) Generate(ctx context.Context, p Params) (Result, error) {
	p = p.WithDefaults()
	if err := validate.Struct(p); err != nil {
		return Result{}, fmt.Errorf("quiz params: %w", err)
	}

	ctx, span := tracer.Start(ctx, "quiz.generate")
	defer span.End()
	span.SetAttributes(attribute.String("rag.topic_id", p.TopicID), attribute.String("rag.mode", p.Mode))

	n, err := g.chunks.CountActive(ctx, p.TopicID)
	if err != nil {
		return Result{}, fmt.Errorf("count active chunks: %w", err)
	}
	if n == 0 {
		return Result{}, ErrNoActiveChunks
	}

	query := strings.TrimSpace(p.Scope)
	plan := pipeline.Plan{
		FetchK:     p.FetchK,
		TopK:       p.TopKAfterRerank,
		RerankTopK: p.TopKAfterRerank,
		Filter:     retrieval.Filter{TopicID: p.TopicID, OnlyActive: true},
	}
	if p.Mode == ModeMultiQuery || p.Mode == ModeBoth || g.cfg.Retriever == ModeMultiQuery {
		plan.Rewrites = p.Expansions
	}
	if p.Mode == ModeHyde || p.Mode == ModeBoth {
		plan.Hyde = p.HydeN
	}

	found, err := g.retrieval.Run(ctx, query, plan)
	if err != nil {
		return Result{}, err
	}

	contextBlock := FormatContext(found.Fragments, g.cfg.MaxContextChars)
	if strings.TrimSpace(contextBlock) == "" {
		return Result{}, ErrEmptyContext
	}

	packet, err := g.ask(ctx, Prompt(contextBlock, p.Count, p.Difficulty))
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}
	if err := packet.Validate(); err != nil {
		span.RecordError(err)
		return Result{}, err
	}

	questions := Normalize(packet, p.Count)
	span.SetAttributes(attribute.Int("rag.questions", len(questions)), attribute.Int("rag.contexts", len(found.Fragments)))
	g.logger.Info(logModule, "Quiz generated", map[string]interface{}{
		"topic_id":     p.TopicID,
		"questions":    len(questions),
		"context_docs": len(found.Fragments),
		"mode":         p.Mode,
	})
	return Result{Questions: questions, ContextDocs: len(found.Fragments), Mode: p.Mode, Scope: p.Scope}, nil
}

// ask parses the completion as a packet, retrying once with a stricter
// instruction when the first answer is not JSON.
func (g *Generator) ask(ctx context.Context, prompt string) (Packet, error) {
	first, err := g.llm.Generate(ctx, prompt, g.llmOpts...)
	if err != nil {
		return Packet{}, &rag.GenerationError{Attempts: 1, Err: err}
	}
	packet, err := ParsePacket(first)
	if err == nil {
		return packet, nil
	}
	g.logger.Warn(logModule, "Quiz output was not JSON, retrying", map[string]interface{}{"error": err.Error()})

	second, err := g.llm.Generate(ctx, prompt+"\n\n"+StrictJSONRetry, g.llmOpts...)
	if err != nil {
		return Packet{}, &rag.GenerationError{Attempts: 2, Err: err}
	}
	packet, err = ParsePacket(second)
	if err != nil {
		return Packet{}, fmt.Errorf("%w: parse failed after retry: %w", ErrInvalidPacket, err)
	}
	return packet, nil
}
