package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPipelineMissingFile(t *testing.T) {
	cfg, err := LoadPipeline(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPipeline(), cfg)
}

func TestLoadPipelineOverridesAndExpands(t *testing.T) {
	t.Setenv("TEST_RERANK_URL", "http://tei:8080")
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
vector_store:
  search:
    top_k: 12
    use_hyde: true
reranker:
  provider: cross_encoder
  base_url: ${TEST_RERANK_URL}
  fallbacks: [lightweight]
summaries:
  max_map_calls: 8
chat:
  history_turns: 4
`), 0o644))

	cfg, err := LoadPipeline(path)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.VectorStore.Search.TopK)
	assert.Equal(t, 120, cfg.VectorStore.Search.FetchK, "unset keys keep defaults")
	assert.True(t, cfg.VectorStore.Search.UseHyde)
	assert.Equal(t, "http://tei:8080", cfg.Reranker.BaseURL)
	assert.Equal(t, []string{"lightweight"}, cfg.Reranker.Fallbacks)
	assert.True(t, cfg.Reranker.FailOpen)
	assert.Equal(t, 8, cfg.Summaries.MaxMapCalls)
	assert.Equal(t, 12, cfg.Summaries.RecursionLimit)

	chatCfg := cfg.ChatOrchestratorConfig()
	assert.Equal(t, 12, chatCfg.TopK)
	assert.Equal(t, 4, chatCfg.HistoryTurns)
}

func TestParsePipelineInvalid(t *testing.T) {
	cfg, err := ParsePipeline([]byte("vector_store: [unclosed"))
	assert.Error(t, err)
	assert.Equal(t, DefaultPipeline(), cfg)
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_BAD_INT", "forty")
	assert.Equal(t, 42, getEnvAsInt("TEST_INT", 1))
	assert.Equal(t, 1, getEnvAsInt("TEST_BAD_INT", 1))
	assert.Equal(t, 7, getEnvAsInt("TEST_UNSET_INT", 7))
}
