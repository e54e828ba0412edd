package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var ErrNoResults = errors.New("no search results")

type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// Summarizer writes a research answer grounded on search results.
type Summarizer interface {
	SummarizeResults(ctx context.Context, query string, results []Result) (string, error)
}

type Research struct {
	Query   string
	Summary string
	Sources []Result
	// Summarized is false when the answer is the formatted source list.
	Summarized bool
}

type Researcher struct {
	searcher   Searcher
	summarizer Summarizer
	logger     *zap.Logger
}

func NewResearcher(searcher Searcher, summarizer Summarizer, logger *zap.Logger) *Researcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Researcher{searcher: searcher, summarizer: summarizer, logger: logger}
}

// Research searches the web for query and summarises the findings. When the
// summary step fails the formatted source list is returned instead.
func (r *Researcher) Research(ctx context.Context, query string) (Research, error) {
	query = strings.TrimSpace(query)
	results, err := r.searcher.Search(ctx, query)
	if err != nil {
		return Research{}, err
	}
	if len(results) == 0 {
		return Research{}, fmt.Errorf("%w for %q", ErrNoResults, query)
	}

	research := Research{Query: query, Sources: results}
	if r.summarizer != nil {
		summary, err := r.summarizer.SummarizeResults(ctx, query, results)
		if err == nil && strings.TrimSpace(summary) != "" {
			research.Summary = strings.TrimSpace(summary)
			research.Summarized = true
			return research, nil
		}
		r.logger.Warn("research summary failed, returning source list", zap.String("query", query), zap.Error(err))
	}
	research.Summary = FormatResults(query, results)
	return research, nil
}

// FormatResults renders results as a Markdown source list.
func FormatResults(query string, results []Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Search Results for: \"%s\"**\nFound %d relevant sources.\n", query, len(results))
	for i, result := range results {
		published := result.PublishedDate
		if published == "" {
			published = "Unknown"
		}
		preview := "No content available"
		if text := strings.TrimSpace(result.Text); text != "" {
			preview = clip(text, 500) + "..."
		}
		highlights := "No highlights available"
		if len(result.Highlights) > 0 {
			highlights = strings.Join(result.Highlights, " | ")
		}
		fmt.Fprintf(&b, "\n**Result %d:**\n- **Title:** %s\n- **URL:** %s\n- **Published:** %s\n- **Content Preview:** %s\n- **Key Highlights:** %s\n",
			i+1, result.Title, result.URL, published, preview, highlights)
	}
	return b.String()
}

func clip(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
