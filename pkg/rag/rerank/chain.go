package rerank

import (
	"context"
	"errors"
	"fmt"

	"studyrag-be/internal/pkg/logger"
	"studyrag-be/pkg/rag"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const logModule = "rag.rerank"

var tracer = otel.Tracer("studyrag/rag/rerank")

// Attempt records one strategy that failed.
type Attempt struct {
	Strategy string
	Err      error
}

// Outcome is the result of a chain run.
type Outcome struct {
	Fragments []rag.Fragment
	Strategy  string
	Attempts  []Attempt
}

// Chain tries strategies in priority order. When all fail it truncates like
// Disabled if failOpen is set, otherwise it reports ErrRerank.
type Chain struct {
	strategies []Reranker
	failOpen   bool
	logger     logger.ILogger
}

func NewChain(log logger.ILogger, failOpen bool, strategies ...Reranker) *Chain {
	return &Chain{strategies: strategies, failOpen: failOpen, logger: log}
}

func (c *Chain) Strategies() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

func (c *Chain) Run(ctx context.Context, query string, frags []rag.Fragment, topK int) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "rerank.chain")
	defer span.End()
	span.SetAttributes(attribute.Int("rag.candidates", len(frags)), attribute.Int("rag.top_k", topK))

	var attempts []Attempt
	for _, s := range c.strategies {
		out, err := s.Rerank(ctx, query, frags, topK)
		if err == nil {
			span.SetAttributes(attribute.String("rag.rerank_strategy", s.Name()))
			return Outcome{Fragments: out, Strategy: s.Name(), Attempts: attempts}, nil
		}
		attempts = append(attempts, Attempt{Strategy: s.Name(), Err: err})
		c.logger.Warn(logModule, "Rerank strategy failed", map[string]interface{}{
			"strategy": s.Name(),
			"error":    err.Error(),
		})
		if ctx.Err() != nil {
			break
		}
	}

	if !c.failOpen && len(attempts) > 0 {
		errs := make([]error, len(attempts))
		for i, a := range attempts {
			errs[i] = fmt.Errorf("%s: %w", a.Strategy, a.Err)
		}
		return Outcome{Attempts: attempts}, fmt.Errorf("%w: %w", rag.ErrRerank, errors.Join(errs...))
	}

	out, _ := Disabled{}.Rerank(ctx, query, frags, topK)
	span.SetAttributes(attribute.String("rag.rerank_strategy", Disabled{}.Name()))
	return Outcome{Fragments: out, Strategy: Disabled{}.Name(), Attempts: attempts}, nil
}

// Name and Rerank let a Chain stand wherever a single Reranker is expected.
func (c *Chain) Name() string { return "chain" }

func (c *Chain) Rerank(ctx context.Context, query string, frags []rag.Fragment, topK int) ([]rag.Fragment, error) {
	out, err := c.Run(ctx, query, frags, topK)
	return out.Fragments, err
}
