// Package agents holds the LLM-backed collaborators used by the command
// handlers and the memory store. Each agent owns its prompt and calls a single
// llm.Provider.
package agents

import (
	"context"
	"strings"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/llm"
)

// complete sends a system and user turn and returns the trimmed reply.
func complete(ctx context.Context, provider llm.Provider, system string, user string, images ...string) (string, error) {
	messages := make([]llm.Message, 0, 2)
	if system != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: user, Images: images})

	reply, err := provider.Generate(ctx, messages)
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", llm.ErrEmptyResponse
	}
	return reply, nil
}

func clip(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
