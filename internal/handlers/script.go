package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/browsercontext"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/commands"
)

const scriptContextElements = 5

type ScriptGenerator interface {
	GenerateScript(ctx context.Context, description string) (string, error)
}

type ScriptHandler struct {
	generator ScriptGenerator
}

func NewScriptHandler(generator ScriptGenerator) *ScriptHandler {
	return &ScriptHandler{generator: generator}
}

func (h *ScriptHandler) Command() string { return "script" }

func (h *ScriptHandler) Description() string {
	return "Generate JavaScript code using AI based on your description"
}

func (h *ScriptHandler) Help(string) string {
	return `🎭 **AI-Powered Script Generator**

Generate JavaScript from a plain-language description.

**Usage:**
` + "`/script [description]`" + `

**Examples:**
• ` + "`/script create a modal with a contact form`" + `
• ` + "`/script make a countdown timer to New Year`" + `
• ` + "`/script build a glass overlay with blur effect`" + `

When the request comes from the browser extension, the current page URL, title,
selection and visible elements are used to tailor the script.

**How to use the generated code:**
1. Copy the JavaScript code
2. Open the browser Developer Console (F12)
3. Paste and press Enter
`
}

func (h *ScriptHandler) Handle(ctx context.Context, args string) commands.Result {
	return h.HandleWithContext(ctx, args, nil)
}

func (h *ScriptHandler) HandleWithContext(ctx context.Context, args string, page *browsercontext.Context) commands.Result {
	description := strings.TrimSpace(args)
	if description == "" {
		return commands.Fail(
			"❌ Please provide a description of the script you want to generate.\n\nExample: /script create a red background overlay",
			"Empty script description",
			nil,
		)
	}

	prompt := description
	pageBlock := page.PromptBlock(scriptContextElements)
	if pageBlock != "" {
		prompt = description + "\n\nBrowser Context:\n" + pageBlock
	}

	code, err := h.generator.GenerateScript(ctx, prompt)
	if err != nil {
		code = "// Error generating JavaScript: " + err.Error()
	}
	code = stripFences(code)
	if strings.HasPrefix(code, "// Error") {
		return commands.Fail("❌ AI generation failed:\n"+code, "AI generation error", map[string]any{
			"command":     "script",
			"description": description,
		})
	}

	note := ""
	if pageBlock != "" {
		note = " (using page context)"
	}
	data := fmt.Sprintf("✅ AI-Generated JavaScript code%s:\n\n```javascript\n%s\n```\n\n"+
		"💡 **How to use:**\n1. Copy the code above\n2. Open your browser's Developer Console (F12)\n3. Paste and press Enter\n4. Or save it as a bookmarklet or userscript",
		note, code)
	return commands.OK(data, map[string]any{
		"command":              "script",
		"description":          description,
		"js_code":              code,
		"ai_generated":         true,
		"used_browser_context": pageBlock != "",
	})
}

func stripFences(code string) string {
	code = strings.TrimSpace(code)
	code = strings.TrimPrefix(code, "```javascript")
	code = strings.TrimPrefix(code, "```")
	code = strings.TrimSuffix(code, "```")
	return strings.TrimSpace(code)
}
