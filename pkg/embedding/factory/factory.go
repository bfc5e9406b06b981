package factory

import (
	"fmt"
	"strings"

	"studyrag-be/pkg/embedding"
	"studyrag-be/pkg/embedding/jina"
)

// NewEmbeddingProvider picks an embedding backend by name.
func NewEmbeddingProvider(providerType, model, baseURL, apiKey string) (embedding.EmbeddingProvider, error) {
	switch strings.ToLower(strings.TrimSpace(providerType)) {
	case "ollama", "":
		return embedding.NewOllamaProvider(baseURL, model), nil
	case "gemini", "google":
		if apiKey == "" {
			return nil, fmt.Errorf("gemini embeddings need an api key")
		}
		p := embedding.NewGeminiProvider(apiKey, model)
		if baseURL != "" {
			p.BaseURL = baseURL
		}
		return p, nil
	case "jina":
		if apiKey == "" {
			return nil, fmt.Errorf("jina embeddings need an api key")
		}
		return jina.NewJinaProvider(apiKey, baseURL, model), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", providerType)
	}
}
