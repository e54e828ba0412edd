package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/llm"
)

type Config struct {
	Port                 string
	DataDir              string
	MemoryFile           string
	MemoryBackend        string
	PostgresURL          string
	SQLitePath           string
	TemporalAddress      string
	TemporalTaskQueue    string
	LLMMode              string
	LLMProvider          string
	LLMModel             string
	LLMVisionModel       string
	LLMBaseURL           string
	LLMRequestsPerMinute float64
	OpenAIAPIKey         string
	OpenRouterAPIKey     string
	GeminiAPIKey         string
	ExaAPIKey            string
	ExaBaseURL           string
	ExaNumResults        int
	LogLevel             string
}

func Load() Config {
	dataDir := getEnv("DATA_DIR", "data")
	postgresURL := getEnv("POSTGRES_URL", "")
	if postgresURL == "" {
		postgresURL = buildPostgresURL()
	}
	return Config{
		Port:                 getEnv("COMMAND_CENTER_PORT", "8000"),
		DataDir:              dataDir,
		MemoryFile:           getEnv("MEMORY_FILE", filepath.Join(dataDir, "memories.json")),
		MemoryBackend:        getEnv("MEMORY_BACKEND", "file"),
		PostgresURL:          postgresURL,
		SQLitePath:           getEnv("SQLITE_PATH", filepath.Join(dataDir, "memories.db")),
		TemporalAddress:      getEnv("TEMPORAL_ADDRESS", ""),
		TemporalTaskQueue:    getEnv("TEMPORAL_TASK_QUEUE", "command-center-pages"),
		LLMMode:              getEnv("LLM_MODE", "remote"),
		LLMProvider:          getEnv("LLM_PROVIDER", "openai"),
		LLMModel:             getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMVisionModel:       getEnv("LLM_VISION_MODEL", "gpt-4o"),
		LLMBaseURL:           getEnv("LLM_BASE_URL", ""),
		LLMRequestsPerMinute: getEnvFloat("LLM_REQUESTS_PER_MINUTE", 0),
		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenRouterAPIKey:     getEnv("OPENROUTER_API_KEY", ""),
		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		ExaAPIKey:            getEnv("EXA_API_KEY", ""),
		ExaBaseURL:           getEnv("EXA_BASE_URL", "https://api.exa.ai"),
		ExaNumResults:        getEnvInt("EXA_NUM_RESULTS", 5),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}
}

// LoadDotEnv loads the given .env files (default ".env") into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// APIKey returns the key used by the configured LLM provider.
func (c Config) APIKey() string {
	switch c.LLMProvider {
	case "openrouter":
		return c.OpenRouterAPIKey
	case "gemini":
		return c.GeminiAPIKey
	default:
		return c.OpenAIAPIKey
	}
}

// LLMConfig returns the provider settings for the text model. Use
// WithModel(LLMVisionModel) for screenshot work.
func (c Config) LLMConfig() llm.Config {
	return llm.Config{
		Mode:              c.LLMMode,
		Provider:          c.LLMProvider,
		Model:             c.LLMModel,
		BaseURL:           c.LLMBaseURL,
		OpenAIAPIKey:      c.OpenAIAPIKey,
		OpenRouterAPIKey:  c.OpenRouterAPIKey,
		GeminiAPIKey:      c.GeminiAPIKey,
		RequestsPerMinute: c.LLMRequestsPerMinute,
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func buildPostgresURL() string {
	user := getEnv("POSTGRES_USER", "commandcenter")
	password := getEnv("POSTGRES_PASSWORD", "commandcenter")
	host := getEnv("POSTGRES_HOST", "localhost")
	port := getEnv("POSTGRES_PORT", "5432")
	database := getEnv("POSTGRES_DB", "commandcenter")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, database)
}
