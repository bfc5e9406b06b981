package rag

import (
	"context"
	"errors"
	"strings"

	"studyrag-be/pkg/llm"
)

// PlainTextRetry is appended to a prompt whose first answer was unusable.
const PlainTextRetry = "Return your final answer as plain TEXT only."

var errEmptyCompletion = errors.New("empty completion")

// Generate runs one prompt and retries once with stricter appended when the
// call fails or returns blank text. The returned text is trimmed.
func Generate(ctx context.Context, provider llm.LLMProvider, prompt, stricter string, opts ...llm.Option) (string, error) {
	out, err := provider.Generate(ctx, prompt, opts...)
	if err == nil && strings.TrimSpace(out) != "" {
		return strings.TrimSpace(out), nil
	}
	if ctx.Err() != nil {
		return "", &GenerationError{Attempts: 1, Err: ctx.Err()}
	}

	if stricter == "" {
		stricter = PlainTextRetry
	}
	out, err = provider.Generate(ctx, prompt+"\n\n"+stricter, opts...)
	if err != nil {
		return "", &GenerationError{Attempts: 2, Err: err}
	}
	if strings.TrimSpace(out) == "" {
		return "", &GenerationError{Attempts: 2, Err: errEmptyCompletion}
	}
	return strings.TrimSpace(out), nil
}
