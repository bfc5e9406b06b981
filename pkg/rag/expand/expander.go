package expand

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"studyrag-be/internal/pkg/logger"
	"studyrag-be/pkg/llm"
	"studyrag-be/pkg/rag"

	"golang.org/x/sync/errgroup"
)

const logModule = "rag.expand"

// QuerySet is the original query plus its alternative phrasings.
type QuerySet struct {
	Original    string
	Rewrites    []string
	HydeAnswers []string
}

// Queries returns original, rewrites, then hypothetical answers.
func (q QuerySet) Queries() []string {
	out := make([]string, 0, 1+len(q.Rewrites)+len(q.HydeAnswers))
	out = append(out, q.Original)
	out = append(out, q.Rewrites...)
	out = append(out, q.HydeAnswers...)
	return out
}

// Options selects which strategies run. Zero disables a strategy.
type Options struct {
	Rewrites int
	Hyde     int
}

type Expander struct {
	llm     llm.LLMProvider
	logger  logger.ILogger
	llmOpts []llm.Option
}

func NewExpander(provider llm.LLMProvider, log logger.ILogger, opts ...llm.Option) *Expander {
	return &Expander{llm: provider, logger: log, llmOpts: opts}
}

func rewritePrompt(query string, n int) string {
	var b strings.Builder
	b.WriteString("You rewrite search queries for a study assistant.\n")
	fmt.Fprintf(&b, "Write %d diverse phrasings of the question below that could retrieve relevant passages.\n", n)
	b.WriteString("Return one phrasing per line. No numbering, no commentary.\n\n")
	b.WriteString("Question: ")
	b.WriteString(query)
	return b.String()
}

func hydePrompt(query string) string {
	return "Write a short, factual passage that would answer the question below, as it might appear in study material.\n" +
		"Do not mention that the passage is hypothetical.\n\n" +
		"Question: " + query
}

var enumeration = regexp.MustCompile(`^\(?\d{1,3}[.)]\s+`)

// ParseRewrites turns a line-per-phrasing completion into at most n unique
// phrasings in first-seen order.
func ParseRewrites(text string, n int) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimLeft(strings.TrimSpace(line), "•-* \t")
		line = enumeration.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
		if len(out) == n {
			break
		}
	}
	return out
}

// Rewrites asks for n phrasings of query. Fewer may come back; none are invented.
func (e *Expander) Rewrites(ctx context.Context, query string, n int) ([]string, error) {
	if n < 1 {
		n = 1
	}
	out, err := e.llm.Generate(ctx, rewritePrompt(query, n), e.llmOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: rewrites: %w", rag.ErrExpansion, err)
	}
	return ParseRewrites(out, n), nil
}

// Hyde produces m hypothetical answers, in invocation order.
func (e *Expander) Hyde(ctx context.Context, query string, m int) ([]string, error) {
	if m < 1 {
		m = 1
	}
	answers := make([]string, m)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < m; i++ {
		g.Go(func() error {
			out, err := e.llm.Generate(gctx, hydePrompt(query), e.llmOpts...)
			if err != nil {
				return err
			}
			answers[i] = strings.TrimSpace(out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: hyde: %w", rag.ErrExpansion, err)
	}
	return answers, nil
}

// Expand builds a QuerySet. On failure the set built so far is returned
// alongside the error, so callers can continue with what they have.
func (e *Expander) Expand(ctx context.Context, query string, opts Options) (QuerySet, error) {
	set := QuerySet{Original: query}

	if opts.Rewrites > 0 {
		rewrites, err := e.Rewrites(ctx, query, opts.Rewrites)
		if err != nil {
			e.logger.Warn(logModule, "Rewrite expansion failed", map[string]interface{}{"error": err.Error()})
			return set, err
		}
		set.Rewrites = rewrites
	}

	if opts.Hyde > 0 {
		answers, err := e.Hyde(ctx, query, opts.Hyde)
		if err != nil {
			e.logger.Warn(logModule, "HyDE expansion failed", map[string]interface{}{"error": err.Error()})
			return set, err
		}
		set.HydeAnswers = answers
	}

	e.logger.Debug(logModule, "Query expanded", map[string]interface{}{
		"rewrites": len(set.Rewrites),
		"hyde":     len(set.HydeAnswers),
	})
	return set, nil
}
