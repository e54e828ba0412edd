// Package handlers implements the slash commands served by the router.
package handlers

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/commands"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/search"
)

type Researcher interface {
	Research(ctx context.Context, query string) (search.Research, error)
}

type WebHandler struct {
	researcher Researcher
	now        func() time.Time
}

func NewWebHandler(researcher Researcher) *WebHandler {
	return &WebHandler{researcher: researcher, now: time.Now}
}

func (h *WebHandler) Command() string { return "web" }

func (h *WebHandler) Description() string {
	return "Search the web using Exa AI's semantic search engine"
}

func (h *WebHandler) Help(string) string {
	return `🔍 **Web Search Command**

Search the web with Exa's semantic search engine and get a summarized answer.

**Usage:** ` + "`/web [search query]`" + `

**Examples:**
• ` + "`/web latest AI developments`" + `
• ` + "`/web how does quantum computing work`" + `

💡 **Tips:**
• Semantic search understands meaning, not just keywords
• Results favour recent, high-quality content
• Answers include the sources they were built from
`
}

func (h *WebHandler) Handle(ctx context.Context, args string) commands.Result {
	query := strings.TrimSpace(args)
	if query == "" {
		return commands.Fail("❌ Search query cannot be empty.", "Please provide a search query", map[string]any{"command": "web"})
	}

	start := h.now()
	research, err := h.researcher.Research(ctx, query)
	elapsed := roundSeconds(h.now().Sub(start))
	if err != nil {
		return commands.Fail(fmt.Sprintf("❌ Search failed: %v", err), err.Error(), map[string]any{
			"command":         "web",
			"query":           query,
			"processing_time": elapsed,
		})
	}
	return commands.OK(research.Summary, map[string]any{
		"command":         "web",
		"query":           query,
		"processing_time": elapsed,
		"source":          "exa_ai",
		"sources":         len(research.Sources),
		"summarized":      research.Summarized,
	})
}

// roundSeconds reports d in seconds with two decimals.
func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
