// Package pipeline runs the retrieval half of a RAG turn: expand the question,
// fuse the per-query searches, then rerank and cap the result.
package pipeline

import (
	"context"
	"fmt"

	"studyrag-be/internal/pkg/logger"
	"studyrag-be/pkg/rag"
	"studyrag-be/pkg/rag/expand"
	"studyrag-be/pkg/rag/rerank"
	"studyrag-be/pkg/rag/retrieval"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const logModule = "rag.pipeline"

var tracer = otel.Tracer("studyrag/rag/pipeline")

// Plan is the per-call shape of a retrieval run.
type Plan struct {
	Rewrites   int // 0 disables multi-query rewriting
	Hyde       int // 0 disables hypothetical answers
	FetchK     int
	RerankTopK int // 0 means TopK
	TopK       int
	Filter     retrieval.Filter
}

// Result is what a run produced, plus how it got there.
type Result struct {
	Fragments      []rag.Fragment
	Queries        expand.QuerySet
	Candidates     int
	RerankStrategy string
	ExpansionErr   error
}

// Retrieval glues the expander, fusion and rerank chain together.
type Retrieval struct {
	expander *expand.Expander
	fusion   *retrieval.Fusion
	reranker *rerank.Chain
	logger   logger.ILogger
}

// NewRetrieval builds a pipeline. A nil reranker means plain truncation.
func NewRetrieval(expander *expand.Expander, fusion *retrieval.Fusion, reranker *rerank.Chain, log logger.ILogger) *Retrieval {
	return &Retrieval{expander: expander, fusion: fusion, reranker: reranker, logger: log}
}

// Run expands query, searches every phrasing and reranks the fused list. An
// expansion failure degrades to the original query alone; retrieval and
// fail-closed rerank failures are returned.
func (r *Retrieval) Run(ctx context.Context, query string, plan Plan) (Result, error) {
	ctx, span := tracer.Start(ctx, "pipeline.run")
	defer span.End()

	res := Result{Queries: expand.QuerySet{Original: query}}
	if r.expander != nil && (plan.Rewrites > 0 || plan.Hyde > 0) {
		set, err := r.expander.Expand(ctx, query, expand.Options{Rewrites: plan.Rewrites, Hyde: plan.Hyde})
		if err != nil {
			res.ExpansionErr = err
			r.logger.Warn(logModule, "Expansion failed, using original query", map[string]interface{}{"error": err.Error()})
		} else {
			res.Queries = set
		}
	}

	queries := res.Queries.Queries()
	span.SetAttributes(attribute.Int("rag.queries", len(queries)))

	frags, err := r.fusion.Retrieve(ctx, queries, plan.FetchK, plan.Filter)
	if err != nil {
		span.RecordError(err)
		return res, err
	}
	res.Candidates = len(frags)

	rerankK := plan.RerankTopK
	if rerankK <= 0 {
		rerankK = plan.TopK
	}

	if r.reranker == nil {
		frags, _ = rerank.Disabled{}.Rerank(ctx, query, frags, rerankK)
		res.RerankStrategy = rerank.Disabled{}.Name()
	} else {
		out, err := r.reranker.Run(ctx, query, frags, rerankK)
		if err != nil {
			span.RecordError(err)
			return res, fmt.Errorf("rerank %d candidates: %w", len(frags), err)
		}
		frags = out.Fragments
		res.RerankStrategy = out.Strategy
	}

	if plan.TopK > 0 && len(frags) > plan.TopK {
		frags = frags[:plan.TopK]
	}
	res.Fragments = frags

	span.SetAttributes(
		attribute.Int("rag.candidates", res.Candidates),
		attribute.Int("rag.contexts", len(frags)),
		attribute.String("rag.rerank_strategy", res.RerankStrategy),
	)
	r.logger.Debug(logModule, "Contexts retrieved", map[string]interface{}{
		"queries":    len(queries),
		"candidates": res.Candidates,
		"contexts":   len(frags),
		"strategy":   res.RerankStrategy,
	})
	return res, nil
}
