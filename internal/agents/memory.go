package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/llm"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/store"
)

const (
	memorySearchSystem = "You are a knowledge assistant with access to the user's personal knowledge base. " +
		"Find the information that answers the user's question and reply clearly and directly. " +
		"Leave out memories that do not help. If nothing relevant exists, say so plainly."

	pageSummarySystem = "You analyze web page content and extract the key information. " +
		"Identify the main topics, important details and takeaways, and stay factual."

	screenshotSystem = "You analyze screenshots of web pages. Read the visible text, notice the " +
		"layout and important visual elements, and explain the purpose of the page."

	pageContentLimit = 3000
)

// MemorySearcher answers questions from saved memories.
type MemorySearcher struct {
	provider llm.Provider
}

func NewMemorySearcher(provider llm.Provider) *MemorySearcher {
	return &MemorySearcher{provider: provider}
}

func (a *MemorySearcher) SearchMemories(ctx context.Context, query string, memories []store.Memory) (string, error) {
	blocks := make([]string, 0, len(memories))
	for _, mem := range memories {
		blocks = append(blocks, fmt.Sprintf("Memory from %s:\n%s", mem.CreatedAt, mem.Content))
	}
	prompt := fmt.Sprintf(`The user is asking: "%s"

Stored memories:

%s

Instructions:
1. Read every memory above.
2. Use only the information that helps answer the question.
3. If no memory is relevant, reply "I don't have any relevant information about that in your saved memories."
4. Answer conversationally and do not mention memory ids or other technical details.`, query, strings.Join(blocks, "\n\n"))
	return complete(ctx, a.provider, memorySearchSystem, prompt)
}

// PageSummarizer turns extracted page text into a stored summary.
type PageSummarizer struct {
	provider llm.Provider
}

func NewPageSummarizer(provider llm.Provider) *PageSummarizer {
	return &PageSummarizer{provider: provider}
}

func (a *PageSummarizer) SummarizePage(ctx context.Context, url string, content string) (string, error) {
	prompt := fmt.Sprintf(`Summarize the following web page content from %s.

Content:
%s

Cover:
1. The main topic or purpose of the page
2. Key points
3. Important data, facts or insights
4. The overall takeaway

Keep the summary informative but concise.`, url, clip(content, pageContentLimit))
	return complete(ctx, a.provider, pageSummarySystem, prompt)
}

// ScreenshotAnalyzer summarises a page from its screenshot using a vision
// model.
type ScreenshotAnalyzer struct {
	provider llm.Provider
}

func NewScreenshotAnalyzer(provider llm.Provider) *ScreenshotAnalyzer {
	return &ScreenshotAnalyzer{provider: provider}
}

func (a *ScreenshotAnalyzer) AnalyzeScreenshot(ctx context.Context, url string, title string, screenshot string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this screenshot of a web page from %s and write a thorough summary.\n", url)
	if title != "" {
		fmt.Fprintf(&b, "\nPage Title: %s\n", title)
	}
	b.WriteString(`
Please:
1. Identify the main topic or purpose of the page
2. Extract the key text you can see
3. Note important visual elements
4. Summarize the overall content
5. Call out important data, facts or insights

Describe what you observe in detail.`)
	return complete(ctx, a.provider, screenshotSystem, b.String(), screenshot)
}
