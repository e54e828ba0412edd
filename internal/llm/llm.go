package llm

import (
	"context"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn. Images carry base64 payloads or data URLs and are
// only honoured by vision-capable models.
type Message struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"-"`
}

type Provider interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

type Config struct {
	Mode              string
	Provider          string
	Model             string
	BaseURL           string
	OpenAIAPIKey      string
	OpenRouterAPIKey  string
	GeminiAPIKey      string
	RequestsPerMinute float64
}

// WithModel returns a copy of the config targeting a different model.
func (c Config) WithModel(model string) Config {
	if model != "" {
		c.Model = model
	}
	return c
}

func NewProvider(cfg Config) (Provider, error) {
	provider, err := newBaseProvider(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.RequestsPerMinute > 0 {
		return NewRateLimited(provider, cfg.RequestsPerMinute), nil
	}
	return provider, nil
}

func newBaseProvider(cfg Config) (Provider, error) {
	if cfg.Mode == "local" {
		return LocalProvider{}, nil
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		}), nil
	case "openrouter":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:  cfg.OpenRouterAPIKey,
			Model:   cfg.Model,
			BaseURL: defaultIfEmpty(cfg.BaseURL, "https://openrouter.ai/api/v1"),
		}), nil
	case "gemini":
		return NewGeminiProvider(GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.Model,
		}), nil
	default:
		return nil, ErrUnsupportedProvider{Provider: cfg.Provider}
	}
}

func defaultIfEmpty(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
