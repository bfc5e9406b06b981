package retrieval

import (
	"context"
	"errors"
	"fmt"

	"studyrag-be/internal/pkg/logger"
	"studyrag-be/pkg/rag"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const logModule = "rag.fusion"

var tracer = otel.Tracer("studyrag/rag/retrieval")

type FusionOption func(*Fusion)

// WithConcurrency bounds parallel searches. Zero or less means unbounded.
func WithConcurrency(n int) FusionOption {
	return func(f *Fusion) { f.concurrency = n }
}

// WithMaxResults caps the fused list. Zero means no cap.
func WithMaxResults(n int) FusionOption {
	return func(f *Fusion) { f.maxResults = n }
}

// Fusion runs one retrieval per query and merges the results.
type Fusion struct {
	retriever   Retriever
	logger      logger.ILogger
	concurrency int
	maxResults  int
}

func NewFusion(retriever Retriever, log logger.ILogger, opts ...FusionOption) *Fusion {
	f := &Fusion{retriever: retriever, logger: log, concurrency: 8}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Retrieve searches every query in parallel and concatenates the results in
// query order, keeping the first fragment of each identity. A failed query is
// skipped; only a fan-out where every query fails is an error.
func (f *Fusion) Retrieve(ctx context.Context, queries []string, fetchK int, filter Filter) ([]rag.Fragment, error) {
	if len(queries) == 0 {
		return []rag.Fragment{}, nil
	}

	ctx, span := tracer.Start(ctx, "fusion.retrieve")
	defer span.End()
	span.SetAttributes(attribute.Int("rag.queries", len(queries)), attribute.Int("rag.fetch_k", fetchK))

	results := make([][]rag.Fragment, len(queries))
	errs := make([]error, len(queries))

	var g errgroup.Group
	if f.concurrency > 0 {
		g.SetLimit(f.concurrency)
	}
	for i, q := range queries {
		g.Go(func() error {
			frags, err := f.retriever.Retrieve(ctx, q, fetchK, filter)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = frags
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		f.logger.Warn(logModule, "Query retrieval failed, skipping", map[string]interface{}{
			"query_index": i,
			"error":       err.Error(),
		})
	}
	if failed == len(queries) {
		span.RecordError(errors.Join(errs...))
		return nil, fmt.Errorf("%w: all %d queries failed: %w", rag.ErrRetrieval, failed, errors.Join(errs...))
	}

	fused := Dedupe(results...)
	if f.maxResults > 0 && len(fused) > f.maxResults {
		fused = fused[:f.maxResults]
	}

	span.SetAttributes(attribute.Int("rag.fused", len(fused)), attribute.Int("rag.failed_queries", failed))
	f.logger.Debug(logModule, "Fusion complete", map[string]interface{}{
		"queries": len(queries),
		"failed":  failed,
		"fused":   len(fused),
	})
	return fused, nil
}

// Dedupe concatenates lists in order, dropping repeated identities.
func Dedupe(lists ...[]rag.Fragment) []rag.Fragment {
	seen := make(map[rag.Identity]struct{})
	out := []rag.Fragment{}
	for _, list := range lists {
		for _, frag := range list {
			id := frag.Identity()
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, frag)
		}
	}
	return out
}
