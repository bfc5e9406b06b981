package rerank

import (
	"strings"

	"studyrag-be/internal/pkg/logger"
)

// Config selects the primary strategy and its fallbacks.
type Config struct {
	Provider  string   `yaml:"provider"` // disabled | cross_encoder | cohere | lightweight
	Model     string   `yaml:"model"`
	BaseURL   string   `yaml:"base_url"`
	APIKey    string   `yaml:"api_key"`
	TopK      int      `yaml:"top_k"`
	MinScore  float64  `yaml:"min_score"`
	FailOpen  bool     `yaml:"fail_open"`
	Fallbacks []string `yaml:"fallbacks"`
}

// Enabled reports whether any reranking beyond truncation is configured.
func (c Config) Enabled() bool {
	p := normalize(c.Provider)
	return p != "" && p != "disabled"
}

func normalize(provider string) string {
	p := strings.ToLower(strings.TrimSpace(provider))
	switch p {
	case "none", "off":
		return "disabled"
	case "bge", "cross-encoder", "crossencoder":
		return "cross_encoder"
	case "hosted":
		return "cohere"
	case "flashrank":
		return "lightweight"
	}
	return p
}

func newStrategy(name string, cfg Config) (Reranker, bool) {
	switch normalize(name) {
	case "cross_encoder":
		return NewCrossEncoder(cfg.BaseURL, cfg.Model), true
	case "cohere":
		return NewHosted(cfg.APIKey, cfg.BaseURL, cfg.Model), true
	case "lightweight":
		return NewLightweight(cfg.MinScore), true
	default:
		return nil, false
	}
}

// Build turns configuration into a chain. Unknown providers are skipped, so
// an unrecognised primary degrades to truncation.
func Build(cfg Config, log logger.ILogger) *Chain {
	var strategies []Reranker
	seen := map[string]struct{}{}
	for _, name := range append([]string{cfg.Provider}, cfg.Fallbacks...) {
		n := normalize(name)
		if n == "" || n == "disabled" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		s, ok := newStrategy(n, cfg)
		if !ok {
			log.Warn(logModule, "Unknown rerank provider, ignoring", map[string]interface{}{"provider": name})
			continue
		}
		seen[n] = struct{}{}
		strategies = append(strategies, s)
	}
	return NewChain(log, cfg.FailOpen, strategies...)
}
