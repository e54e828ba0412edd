package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/agents"
)

func TestTabsHandler_SlashCommandPointsToAPI(t *testing.T) {
	result := NewTabsHandler(new(MockTabAnalyzer), nil, nil).Handle(context.Background(), "anything")
	assert.False(t, result.Success)
	assert.Equal(t, "Use the API endpoint instead", result.Error)
}

func TestTabsHandler_Validation(t *testing.T) {
	handler := NewTabsHandler(new(MockTabAnalyzer), nil, nil)

	noImages := handler.Analyze(context.Background(), TabRequest{Query: "q"})
	assert.False(t, noImages.Success)
	assert.Equal(t, "images are required", noImages.Error)

	noQuery := handler.Analyze(context.Background(), TabRequest{Images: []string{"a"}, Query: " "})
	assert.False(t, noQuery.Success)
	assert.Equal(t, "query is required", noQuery.Error)
}

func TestTabsHandler_AnalyzeWithTranscripts(t *testing.T) {
	second := "https://youtu.be/aaaaaaaaaaa"
	fourth := "https://youtu.be/bbbbbbbbbbb"
	fetcher := &stubFetcher{byURL: map[string]string{
		second: "first video",
		fourth: "second video",
	}}
	analyzer := new(MockTabAnalyzer)
	analyzer.On("AnalyzeTabs", mock.Anything, agents.TabAnalysis{
		Images: []string{"i1", "i2", "i3", "i4", "i5"},
		Query:  "what are these about?",
		Transcripts: []agents.TabTranscript{
			{TabIndex: 2, URL: second, Text: "first video"},
			{TabIndex: 4, URL: fourth, Text: "second video"},
		},
	}).Return("Two videos and some docs.", nil)

	handler := NewTabsHandler(analyzer, fetcher, nil)
	handler.now = fixedClock(time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC))

	result := handler.Analyze(context.Background(), TabRequest{
		Images:  []string{"i1", "i2", "i3", "i4", "i5"},
		Query:   " what are these about? ",
		TabURLs: []string{"https://example.com", second, "", fourth, "https://youtu.be/ccccccccccc"},
	})

	require.True(t, result.Success)
	assert.Equal(t, "**what are these about?**\n\nTwo videos and some docs.\n\n🎥 *Enhanced with YouTube transcript data from 2 video(s)*", result.Data)
	assert.Equal(t, map[string]any{
		"command":                  "analyze_tabs",
		"query":                    "what are these about?",
		"tab_count":                5,
		"youtube_transcripts_used": 2,
		"timestamp":                "2026-10-15T09:00:00Z",
	}, result.Metadata)
	assert.ElementsMatch(t, []string{second, fourth, "https://youtu.be/ccccccccccc"}, fetcher.fetched)
	analyzer.AssertExpectations(t)
}

func TestTabsHandler_AnalyzeWithoutFetcher(t *testing.T) {
	analyzer := new(MockTabAnalyzer)
	analyzer.On("AnalyzeTabs", mock.Anything, mock.MatchedBy(func(in agents.TabAnalysis) bool {
		return len(in.Transcripts) == 0
	})).Return("Docs.", nil)

	result := NewTabsHandler(analyzer, nil, nil).Analyze(context.Background(), TabRequest{
		Images:  []string{"i1"},
		Query:   "q",
		TabURLs: []string{"https://youtu.be/aaaaaaaaaaa"},
	})

	require.True(t, result.Success)
	assert.Equal(t, "**q**\n\nDocs.", result.Data)
	assert.Equal(t, 0, result.Metadata["youtube_transcripts_used"])
}

func TestTabsHandler_AnalyzerFailure(t *testing.T) {
	analyzer := new(MockTabAnalyzer)
	analyzer.On("AnalyzeTabs", mock.Anything, mock.Anything).Return("", errors.New("vision quota"))

	result := NewTabsHandler(analyzer, nil, nil).Analyze(context.Background(), TabRequest{Images: []string{"i1"}, Query: "q"})

	assert.False(t, result.Success)
	assert.Equal(t, "❌ Failed to analyze tabs: vision quota", result.Data)
	assert.Equal(t, "vision quota", result.Error)
	assert.Equal(t, 1, result.Metadata["tab_count"])
}
