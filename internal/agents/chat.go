package agents

import (
	"context"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/llm"
)

type ChatAgent struct {
	provider llm.Provider
	persona  string
}

func NewChatAgent(provider llm.Provider, persona string) *ChatAgent {
	return &ChatAgent{provider: provider, persona: persona}
}

// Reply answers a single user message in the configured persona.
func (a *ChatAgent) Reply(ctx context.Context, message string) (string, error) {
	return complete(ctx, a.provider, a.persona, "Respond to this user message: "+message)
}
