package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/llm"
)

const (
	tabsSystem = "You analyze browser screenshots and give direct, conversational answers. " +
		"Answer only the user's question and skip unnecessary structure. " +
		"Mention relationships between tabs only when they matter to the question. " +
		"Do not comment on the analysis process itself."

	transcriptPreview = 1000
)

type TabTranscript struct {
	TabIndex int
	URL      string
	Text     string
}

type TabAnalysis struct {
	Images      []string
	Query       string
	Transcripts []TabTranscript
}

// TabAnalyzer answers a question across several tab screenshots with a
// vision model.
type TabAnalyzer struct {
	provider llm.Provider
}

func NewTabAnalyzer(provider llm.Provider) *TabAnalyzer {
	return &TabAnalyzer{provider: provider}
}

func (a *TabAnalyzer) AnalyzeTabs(ctx context.Context, input TabAnalysis) (string, error) {
	images := make([]string, len(input.Images))
	for i, image := range input.Images {
		images[i] = llm.ImageDataURL(image)
	}
	return complete(ctx, a.provider, tabsSystem, tabsPrompt(input), images...)
}

func tabsPrompt(input TabAnalysis) string {
	subject := "this screenshot"
	if len(input.Images) != 1 {
		subject = fmt.Sprintf("these %d screenshots", len(input.Images))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Looking at %s, %s\n\n", subject, input.Query)
	if len(input.Transcripts) > 0 {
		b.WriteString("Additional context from YouTube video transcripts:\n")
		for _, tr := range input.Transcripts {
			fmt.Fprintf(&b, "Tab %d Transcript: %s\n", tr.TabIndex, clip(tr.Text, transcriptPreview))
		}
		b.WriteString("\n")
	}
	b.WriteString("Give a direct, conversational answer without sections or bullet points unless they genuinely help.")
	if len(input.Transcripts) > 0 {
		b.WriteString(" If the question is about video content, prefer the transcript over what is visible in the screenshot.")
	}
	for i := range input.Images {
		fmt.Fprintf(&b, "\n\nTab %d:", i+1)
	}
	return b.String()
}
