package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/llm"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/search"
)

const researchSystem = "You are a research analyst. Using only the supplied search results, write a " +
	"well-organized answer to the user's query in Markdown. Highlight the key findings, note " +
	"disagreements between sources, and finish with a Sources section listing the titles and URLs you used."

type WebSummarizer struct {
	provider llm.Provider
}

func NewWebSummarizer(provider llm.Provider) *WebSummarizer {
	return &WebSummarizer{provider: provider}
}

func (a *WebSummarizer) SummarizeResults(ctx context.Context, query string, results []search.Result) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nSearch results:\n", query)
	for i, result := range results {
		fmt.Fprintf(&b, "\n[%d] %s\nURL: %s\n", i+1, result.Title, result.URL)
		if result.PublishedDate != "" {
			fmt.Fprintf(&b, "Published: %s\n", result.PublishedDate)
		}
		if len(result.Highlights) > 0 {
			fmt.Fprintf(&b, "Highlights: %s\n", strings.Join(result.Highlights, " | "))
		}
		if text := strings.TrimSpace(result.Text); text != "" {
			fmt.Fprintf(&b, "Content: %s\n", text)
		}
	}
	return complete(ctx, a.provider, researchSystem, b.String())
}
