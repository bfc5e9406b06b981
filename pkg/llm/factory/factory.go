package factory

import (
	"context"
	"fmt"
	"sync"

	"studyrag-be/pkg/llm"
	"studyrag-be/pkg/llm/ollama"
	"studyrag-be/pkg/llm/openaicompat"
)

func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "openai", "huggingface", "openai_compatible":
		return openaicompat.NewProvider(apiKey, baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}

// Spec identifies one model handle.
type Spec struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

type cacheKey struct {
	provider, model, baseURL string
}

// Registry hands out provider handles, one per (provider, model, base URL).
// Handles live for the process lifetime.
type Registry struct {
	mu       sync.Mutex
	handles  map[cacheKey]llm.LLMProvider
	defaults Spec
	build    func(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error)
}

func NewRegistry(defaults Spec) *Registry {
	return &Registry{
		handles:  make(map[cacheKey]llm.LLMProvider),
		defaults: defaults,
		build:    NewLLMProvider,
	}
}

// Get returns the cached handle for spec, filling blank fields from the
// registry defaults.
func (r *Registry) Get(spec Spec) (llm.LLMProvider, error) {
	if spec.Provider == "" {
		spec.Provider = r.defaults.Provider
	}
	if spec.Model == "" {
		spec.Model = r.defaults.Model
	}
	if spec.BaseURL == "" && spec.Provider == r.defaults.Provider {
		spec.BaseURL = r.defaults.BaseURL
	}
	if spec.APIKey == "" {
		spec.APIKey = r.defaults.APIKey
	}

	key := cacheKey{provider: spec.Provider, model: spec.Model, baseURL: spec.BaseURL}

	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handles[key]; ok {
		return h, nil
	}
	h, err := r.build(spec.Provider, spec.Model, spec.BaseURL, spec.APIKey)
	if err != nil {
		return nil, err
	}
	r.handles[key] = h
	return h, nil
}

// Default returns the handle for the registry defaults.
func (r *Registry) Default() (llm.LLMProvider, error) {
	return r.Get(Spec{})
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Router is an LLMProvider that resolves the handle per call from the
// WithModel option, so one engine can drive several models.
type Router struct {
	registry *Registry
}

func NewRouter(registry *Registry) *Router {
	return &Router{registry: registry}
}

func (r *Router) handle(opts []llm.Option) (llm.LLMProvider, error) {
	o := llm.Apply(llm.Options{}, opts...)
	return r.registry.Get(Spec{Model: o.Model})
}

func (r *Router) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	h, err := r.handle(options)
	if err != nil {
		return "", err
	}
	return h.Chat(ctx, history, options...)
}

func (r *Router) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	h, err := r.handle(options)
	if err != nil {
		return "", err
	}
	return h.Generate(ctx, prompt, options...)
}
