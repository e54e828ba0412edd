package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/agents"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/commands"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/transcript"
)

const transcriptFetchLimit = 4

type TabAnalyzer interface {
	AnalyzeTabs(ctx context.Context, input agents.TabAnalysis) (string, error)
}

type TabRequest struct {
	Images  []string
	Query   string
	TabURLs []string
}

// TabsHandler answers questions across screenshots of several browser tabs.
// It is reached through the analyze_tabs API; the slash command only
// explains that.
type TabsHandler struct {
	analyzer    TabAnalyzer
	transcripts transcript.Fetcher
	logger      *zap.Logger
	now         func() time.Time
}

func NewTabsHandler(analyzer TabAnalyzer, transcripts transcript.Fetcher, logger *zap.Logger) *TabsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TabsHandler{analyzer: analyzer, transcripts: transcripts, logger: logger, now: time.Now}
}

func (h *TabsHandler) Command() string { return "analyze_tabs" }

func (h *TabsHandler) Description() string {
	return "Analyze multiple browser tab screenshots with AI"
}

func (h *TabsHandler) Help(string) string {
	return `**Tab Analyzer** - Analyze multiple browser tabs with AI

Send screenshots of several tabs together with a question and get one answer
that takes every tab into account. YouTube tabs contribute their transcript.

**Usage via API:**
` + "```" + `
POST /analyze_tabs
{
    "images": ["data:image/png;base64,...", "data:image/png;base64,..."],
    "query": "Which tab contains pricing information?",
    "tab_urls": ["https://example.com/pricing", "https://www.youtube.com/watch?v=..."]
}
` + "```" + `

**Example queries:**
- "Which tabs mention machine learning?"
- "Compare the main topics across these tabs"
- "Summarize the key points from all tabs"
`
}

func (h *TabsHandler) Handle(context.Context, string) commands.Result {
	return commands.Fail(
		"This feature is designed to be used via the API endpoint /analyze_tabs",
		"Use the API endpoint instead",
		nil,
	)
}

func (h *TabsHandler) Analyze(ctx context.Context, req TabRequest) commands.Result {
	query := strings.TrimSpace(req.Query)
	meta := map[string]any{"command": "analyze_tabs", "query": query, "tab_count": len(req.Images)}
	if len(req.Images) == 0 {
		return commands.Fail("❌ No images provided.", "images are required", meta)
	}
	if query == "" {
		return commands.Fail("❌ No query provided.", "query is required", meta)
	}

	transcripts := h.fetchTranscripts(ctx, req.TabURLs)
	analysis, err := h.analyzer.AnalyzeTabs(ctx, agents.TabAnalysis{
		Images:      req.Images,
		Query:       query,
		Transcripts: transcripts,
	})
	if err != nil {
		h.logger.Error("tab analysis failed", zap.Int("tabs", len(req.Images)), zap.Error(err))
		return commands.Fail(fmt.Sprintf("❌ Failed to analyze tabs: %v", err), err.Error(), meta)
	}

	output := fmt.Sprintf("**%s**\n\n%s", query, analysis)
	if len(transcripts) > 0 {
		output += fmt.Sprintf("\n\n🎥 *Enhanced with YouTube transcript data from %d video(s)*", len(transcripts))
	}
	meta["youtube_transcripts_used"] = len(transcripts)
	meta["timestamp"] = h.now().Format(time.RFC3339)
	return commands.OK(output, meta)
}

// fetchTranscripts loads transcripts for YouTube tabs concurrently. Tabs
// whose transcript cannot be fetched are skipped; order follows the tabs.
func (h *TabsHandler) fetchTranscripts(ctx context.Context, urls []string) []agents.TabTranscript {
	if h.transcripts == nil {
		return nil
	}
	slots := make([]*agents.TabTranscript, len(urls))
	var g errgroup.Group
	g.SetLimit(transcriptFetchLimit)
	for i, url := range urls {
		if url == "" || !transcript.IsYouTubeURL(url) {
			continue
		}
		g.Go(func() error {
			tr, err := h.transcripts.Fetch(ctx, url)
			if err != nil {
				h.logger.Warn("tab transcript unavailable", zap.Int("tab", i+1), zap.String("url", url), zap.Error(err))
				return nil
			}
			slots[i] = &agents.TabTranscript{TabIndex: i + 1, URL: url, Text: tr.Text}
			return nil
		})
	}
	_ = g.Wait()

	var transcripts []agents.TabTranscript
	for _, slot := range slots {
		if slot != nil {
			transcripts = append(transcripts, *slot)
		}
	}
	return transcripts
}
