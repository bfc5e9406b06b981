package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"studyrag-be/pkg/rag/chat"
	"studyrag-be/pkg/rag/rerank"
	"studyrag-be/pkg/rag/summarize"

	"gopkg.in/yaml.v3"
)

// PipelineConfig holds the RAG tunables read from YAML.
type PipelineConfig struct {
	VectorStore struct {
		Search SearchConfig `yaml:"search"`
	} `yaml:"vector_store"`
	Reranker  rerank.Config    `yaml:"reranker"`
	LLM       LLMConfig        `yaml:"llm"`
	Summaries summarize.Config `yaml:"summaries"`
	Chat      ChatConfig       `yaml:"chat"`
	Quiz      QuizConfig       `yaml:"quiz"`
}

type SearchConfig struct {
	FetchK      int    `yaml:"fetch_k"`
	TopK        int    `yaml:"top_k"`
	Retriever   string `yaml:"retriever"`
	Expansions  int    `yaml:"expansions"`
	UseHyde     bool   `yaml:"use_hyde"`
	HydeN       int    `yaml:"hyde_n"`
	MaxResults  int    `yaml:"max_results"`
	Concurrency int    `yaml:"concurrency"`

	// MinSimilarity drops vector hits below this cosine similarity.
	MinSimilarity float64 `yaml:"min_similarity"`
}

type LLMConfig struct {
	Temperature     float64 `yaml:"temperature"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
}

type ChatConfig struct {
	HistoryTurns   int    `yaml:"history_turns"`
	PromptTemplate string `yaml:"prompt_template"`
}

type QuizConfig struct {
	MaxContextChars int  `yaml:"max_context_chars"`
	Rerank          bool `yaml:"rerank"`
}

// DefaultPipeline mirrors the values shipped in config/pipeline.yaml.
func DefaultPipeline() PipelineConfig {
	var p PipelineConfig
	p.VectorStore.Search = SearchConfig{
		FetchK:      120,
		TopK:        30,
		Retriever:   chat.RetrieverMultiQuery,
		Expansions:  3,
		HydeN:       1,
		Concurrency: 8,
	}
	p.Reranker = rerank.Config{Provider: "disabled", FailOpen: true}
	p.LLM = LLMConfig{Temperature: 0.2, MaxOutputTokens: 800}
	p.Summaries = summarize.DefaultConfig()
	p.Chat = ChatConfig{HistoryTurns: 6}
	p.Quiz = QuizConfig{MaxContextChars: 50000}
	return p
}

// LoadPipeline decodes path over the defaults, expanding ${VAR} references
// first. A missing file is not an error.
func LoadPipeline(path string) (PipelineConfig, error) {
	cfg := DefaultPipeline()
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	return ParsePipeline([]byte(os.ExpandEnv(string(raw))))
}

func ParsePipeline(raw []byte) (PipelineConfig, error) {
	cfg := DefaultPipeline()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return DefaultPipeline(), fmt.Errorf("decode pipeline config: %w", err)
	}
	return cfg, nil
}

// ChatOrchestratorConfig flattens the search and chat sections.
func (p PipelineConfig) ChatOrchestratorConfig() chat.Config {
	s := p.VectorStore.Search
	return chat.Config{
		FetchK:       s.FetchK,
		TopK:         s.TopK,
		Retriever:    s.Retriever,
		Expansions:   s.Expansions,
		UseHyde:      s.UseHyde,
		HydeN:        s.HydeN,
		RerankTopK:   p.Reranker.TopK,
		HistoryTurns: p.Chat.HistoryTurns,
	}
}
