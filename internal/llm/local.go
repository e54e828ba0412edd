package llm

import (
	"context"
	"errors"
)

var ErrLocalMode = errors.New("local LLM mode is not implemented")

// LocalProvider answers every request with ErrLocalMode so that handlers
// exercise their deterministic fallbacks.
type LocalProvider struct{}

func (LocalProvider) Generate(ctx context.Context, messages []Message) (string, error) {
	return "", ErrLocalMode
}
