package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/llm"
)

const scriptSystem = "You are a senior front-end developer who writes self-contained vanilla JavaScript " +
	"that runs when pasted into a browser console. The code must not depend on external libraries, " +
	"must guard against missing elements, and should clean up any overlay it creates when dismissed. " +
	"Reply with the JavaScript only."

type ScriptGenerator struct {
	provider llm.Provider
}

func NewScriptGenerator(provider llm.Provider) *ScriptGenerator {
	return &ScriptGenerator{provider: provider}
}

// GenerateScript writes JavaScript for description and returns the code with
// any Markdown fence removed.
func (a *ScriptGenerator) GenerateScript(ctx context.Context, description string) (string, error) {
	prompt := fmt.Sprintf("Write JavaScript that does the following:\n\n%s", description)
	reply, err := complete(ctx, a.provider, scriptSystem, prompt)
	if err != nil {
		return "", err
	}
	return ExtractCode(reply), nil
}

// ExtractCode returns the body of the first fenced block in text, preferring
// a ```javascript fence. Text without a complete fence is returned trimmed.
func ExtractCode(text string) string {
	text = strings.TrimSpace(text)
	for _, fence := range []string{"```javascript", "```"} {
		start := strings.Index(text, fence)
		if start < 0 {
			continue
		}
		start += len(fence)
		end := strings.Index(text[start:], "```")
		if end > 0 {
			return strings.TrimSpace(text[start : start+end])
		}
	}
	return text
}
