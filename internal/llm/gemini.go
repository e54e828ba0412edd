package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

type GeminiConfig struct {
	APIKey string
	Model  string
}

type geminiGenerateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error)

// GeminiProvider talks to the Gemini API through the genai SDK. The client is
// created on first use so construction never performs network I/O.
type GeminiProvider struct {
	apiKey string
	model  string

	mu       sync.Mutex
	generate geminiGenerateFunc
}

func NewGeminiProvider(cfg GeminiConfig) *GeminiProvider {
	return &GeminiProvider{apiKey: cfg.APIKey, model: cfg.Model}
}

func (p *GeminiProvider) Generate(ctx context.Context, messages []Message) (string, error) {
	if p.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	if p.model == "" {
		return "", ErrMissingModel
	}
	generate, err := p.generator(ctx)
	if err != nil {
		return "", err
	}

	system, contents, err := geminiContents(messages)
	if err != nil {
		return "", err
	}
	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	text, err := generate(ctx, p.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (p *GeminiProvider) generator(ctx context.Context) (geminiGenerateFunc, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.generate != nil {
		return p.generate, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	p.generate = func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, model, contents, config)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
	return p.generate, nil
}

// geminiContents folds system messages into a single system instruction and
// maps the remaining turns onto user/model roles.
func geminiContents(messages []Message) (string, []*genai.Content, error) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		role := genai.Role(genai.RoleUser)
		if msg.Role == RoleAssistant {
			role = genai.RoleModel
		}
		parts := []*genai.Part{genai.NewPartFromText(msg.Content)}
		for _, image := range msg.Images {
			mimeType, payload := SplitDataURL(image)
			data, err := base64.StdEncoding.DecodeString(payload)
			if err != nil {
				return "", nil, fmt.Errorf("decode image: %w", err)
			}
			parts = append(parts, genai.NewPartFromBytes(data, mimeType))
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}
	return strings.Join(system, "\n\n"), contents, nil
}
