// Package config provides configuration for the orchestrator.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the orchestrator configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Generation providers
	DeepSeekURL    string
	DeepSeekAPIKey string
	OpenAIURL      string
	OpenAIAPIKey   string
	LLMTimeout     time.Duration

	// Embedding provider
	EmbeddingURL    string
	EmbeddingAPIKey string
	EmbeddingModel  string

	// Corpus
	EmbeddingsPath string
	ContentPath    string

	// Retrieval
	RetrievalTopK     int
	RetrievalMinScore float64

	// Response cache
	CacheTTL time.Duration

	// Tool network calls
	ToolTimeout      time.Duration
	OpenChargeAPIKey string

	// History token budget
	HistoryTokenBudget int
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		HTTPPort:           getEnvInt("HTTP_PORT", 3001),
		DatabaseURL:        getEnv("DATABASE_URL", "file:assistant.db?cache=shared&mode=rwc"),
		DeepSeekURL:        getEnv("DEEPSEEK_API_URL", "https://api.deepseek.com"),
		DeepSeekAPIKey:     getEnv("DEEPSEEK_API_KEY", ""),
		OpenAIURL:          getEnv("OPENAI_API_URL", "https://api.openai.com"),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		LLMTimeout:         time.Duration(getEnvInt("LLM_TIMEOUT_MS", 15000)) * time.Millisecond,
		EmbeddingURL:       getEnv("EMBEDDING_API_URL", "https://api.openai.com"),
		EmbeddingAPIKey:    getEnv("EMBEDDING_API_KEY", os.Getenv("OPENAI_API_KEY")),
		EmbeddingModel:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingsPath:     getEnv("EMBEDDINGS_PATH", "manual-embeddings.json"),
		ContentPath:        getEnv("CONTENT_PATH", "manual-content.json"),
		RetrievalTopK:      getEnvInt("RETRIEVAL_TOP_K", 3),
		RetrievalMinScore:  getEnvFloat("RETRIEVAL_MIN_SCORE", 0.6),
		CacheTTL:           time.Duration(getEnvInt("CACHE_TTL_MS", 15*60*1000)) * time.Millisecond,
		ToolTimeout:        time.Duration(getEnvInt("TOOL_TIMEOUT_MS", 5000)) * time.Millisecond,
		OpenChargeAPIKey:   getEnv("OPENCHARGE_API_KEY", "demo"),
		HistoryTokenBudget: getEnvInt("HISTORY_TOKEN_BUDGET", 6000),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}
