package tokens

import (
	"strings"
	"unicode/utf8"
)

// Estimator returns a token count for a piece of text.
type Estimator interface {
	Count(text string) int
}

// Counter is an exact, model-backed token counter. It may fail.
type Counter interface {
	CountTokens(text string) (int, error)
}

// Approx estimates four characters per token. Empty text is zero tokens,
// any non-empty text is at least one.
type Approx struct{}

func (Approx) Count(text string) int {
	if text == "" {
		return 0
	}
	n := utf8.RuneCountInString(text) / 4
	if n < 1 {
		return 1
	}
	return n
}

type counterEstimator struct {
	counter  Counter
	fallback Estimator
}

// WithCounter prefers the exact counter and falls back when it errors or
// reports a non-positive count for non-empty text.
func WithCounter(counter Counter, fallback Estimator) Estimator {
	if fallback == nil {
		fallback = Approx{}
	}
	if counter == nil {
		return fallback
	}
	return &counterEstimator{counter: counter, fallback: fallback}
}

func (e *counterEstimator) Count(text string) int {
	if text == "" {
		return 0
	}
	n, err := e.counter.CountTokens(text)
	if err != nil || n <= 0 {
		return e.fallback.Count(text)
	}
	return n
}

// JoinCount estimates the tokens of parts joined by sep.
func JoinCount(est Estimator, parts []string, sep string) int {
	return est.Count(strings.Join(parts, sep))
}
