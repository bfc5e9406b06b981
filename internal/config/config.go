package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Pipeline PipelineConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	RagLogFilePath     string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JWTSecret          string
	IngestTopic        string
	EmbeddingCacheTTL  time.Duration
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini string
	Jina         string
	Cohere       string
	HuggingFace  string
}

type AIConfig struct {
	EmbeddingProvider string // ollama | gemini | jina
	EmbeddingModel    string
	EmbeddingBaseURL  string
	LLMProvider       string // ollama | openai | huggingface
	LLMModel          string
	LLMBaseURL        string
	LLMAPIKey         string
}

func (c *Config) IsProduction() bool { return c.App.Environment == "production" }

// EmbeddingAPIKey returns the key of the configured embedding provider.
func (c *Config) EmbeddingAPIKey() string {
	switch c.Ai.EmbeddingProvider {
	case "gemini", "google":
		return c.Keys.GoogleGemini
	case "jina":
		return c.Keys.Jina
	}
	return ""
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	cfg := &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			RagLogFilePath:     getEnv("RAG_LOG_FILE_PATH", "logs/llm_rag.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JWTSecret:          getEnv("JWT_SECRET", ""),
			IngestTopic:        getEnv("DOCUMENT_INGEST_TOPIC", "DOCUMENT_INGEST"),
			EmbeddingCacheTTL:  time.Duration(getEnvAsInt("EMBEDDING_CACHE_TTL_HOURS", 168)) * time.Hour,
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			Jina:         getEnv("JINA_API_KEY", ""),
			Cohere:       getEnv("COHERE_API_KEY", ""),
			HuggingFace:  getEnv("HUGGINGFACE_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", ""),
			EmbeddingBaseURL:  getEnv("EMBEDDING_BASE_URL", getEnv("OLLAMA_BASE_URL", "http://localhost:11434")),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:        getEnv("LLM_BASE_URL", getEnv("OLLAMA_BASE_URL", "http://localhost:11434")),
			LLMAPIKey:         getEnv("LLM_API_KEY", getEnv("HUGGINGFACE_API_KEY", "")),
		},
	}

	pipeline, err := LoadPipeline(getEnv("RAG_PIPELINE_CONFIG", "config/pipeline.yaml"))
	if err != nil {
		log.Printf("[WARN] Pipeline config unusable, using defaults: %v", err)
	}
	cfg.Pipeline = pipeline
	if cfg.Pipeline.Reranker.APIKey == "" {
		cfg.Pipeline.Reranker.APIKey = cfg.Keys.Cohere
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
