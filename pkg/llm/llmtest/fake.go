// Package llmtest provides a scripted LLMProvider for tests.
package llmtest

import (
	"context"
	"sync"

	"studyrag-be/pkg/llm"
)

// Call is one recorded invocation.
type Call struct {
	Prompt  string
	Options llm.Options
}

// Fake answers every prompt through Respond. It is safe for concurrent use.
type Fake struct {
	Respond func(ctx context.Context, prompt string, opts llm.Options) (string, error)

	mu    sync.Mutex
	calls []Call
}

var _ llm.LLMProvider = &Fake{}

// Static returns a fake that always answers text.
func Static(text string) *Fake {
	return &Fake{Respond: func(context.Context, string, llm.Options) (string, error) {
		return text, nil
	}}
}

// Sequence answers with the given replies in call order, then repeats the last.
func Sequence(replies ...string) *Fake {
	var mu sync.Mutex
	i := 0
	return &Fake{Respond: func(context.Context, string, llm.Options) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(replies) == 0 {
			return "", nil
		}
		r := replies[i]
		if i < len(replies)-1 {
			i++
		}
		return r, nil
	}}
}

func (f *Fake) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	prompt := ""
	if len(history) > 0 {
		prompt = history[len(history)-1].Content
	}
	return f.Generate(ctx, prompt, options...)
}

func (f *Fake) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	opts := llm.Apply(llm.Options{}, options...)

	f.mu.Lock()
	f.calls = append(f.calls, Call{Prompt: prompt, Options: opts})
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Respond == nil {
		return "", nil
	}
	return f.Respond(ctx, prompt, opts)
}

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
