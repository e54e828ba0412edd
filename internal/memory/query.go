package memory

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/store"
)

const (
	SearchMethodAI       = "ai_search"
	SearchMethodFallback = "fallback_search"
	SearchMethodEmpty    = "empty"
)

type Listing struct {
	Memories []store.Memory
	Total    int
}

// List returns memories newest first. A limit <= 0 returns everything.
func (s *Store) List(ctx context.Context, limit int) (Listing, error) {
	memories, err := s.Load(ctx)
	if err != nil {
		return Listing{}, err
	}
	sortNewestFirst(memories)
	total := len(memories)
	if limit > 0 && limit < total {
		memories = memories[:limit]
	}
	return Listing{Memories: memories, Total: total}, nil
}

type PageRequest struct {
	Offset int
	// Limit < 0 means no limit.
	Limit int
	// Type filters by memory type when set.
	Type string
}

type Page struct {
	Memories []store.Memory
	Total    int
	HasMore  bool
}

// Page returns the window [Offset, Offset+Limit) of the newest-first
// collection. HasMore is true iff the window ends before the last memory.
func (s *Store) Page(ctx context.Context, req PageRequest) (Page, error) {
	memories, err := s.Load(ctx)
	if err != nil {
		return Page{}, err
	}
	if req.Type != "" {
		filtered := memories[:0]
		for _, mem := range memories {
			if mem.Type == req.Type {
				filtered = append(filtered, mem)
			}
		}
		memories = filtered
	}
	sortNewestFirst(memories)

	total := len(memories)
	start := clamp(req.Offset, 0, total)
	end := total
	if req.Limit >= 0 {
		end = clamp(req.Offset+req.Limit, start, total)
	}
	window := make([]store.Memory, end-start)
	copy(window, memories[start:end])

	hasMore := false
	if req.Limit >= 0 {
		hasMore = req.Offset+req.Limit < total
	}
	return Page{Memories: window, Total: total, HasMore: hasMore}, nil
}

type SearchResult struct {
	Answer string
	Method string
	// Matches counts fallback hits; zero for AI answers.
	Matches int
}

// Search asks the Searcher to answer query from all memories. When it is
// missing or fails, memories whose content contains query case-insensitively
// are listed instead.
func (s *Store) Search(ctx context.Context, query string) (SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return SearchResult{}, ErrEmptyQuery
	}
	memories, err := s.Load(ctx)
	if err != nil {
		return SearchResult{}, err
	}
	if len(memories) == 0 {
		return SearchResult{
			Answer: "📭 No memories found. Start saving some with `/memory save`!",
			Method: SearchMethodEmpty,
		}, nil
	}

	if s.searcher != nil {
		answer, err := s.searcher.SearchMemories(ctx, query, memories)
		if err == nil && strings.TrimSpace(answer) != "" {
			return SearchResult{Answer: answer, Method: SearchMethodAI}, nil
		}
		s.logger.Warn("AI memory search failed, using substring fallback", zap.String("query", query), zap.Error(err))
	}
	return fallbackSearch(query, memories), nil
}

func fallbackSearch(query string, memories []store.Memory) SearchResult {
	needle := strings.ToLower(query)
	var matches []store.Memory
	for _, mem := range memories {
		if strings.Contains(strings.ToLower(mem.Content), needle) {
			matches = append(matches, mem)
		}
	}

	switch len(matches) {
	case 0:
		return SearchResult{
			Answer: fmt.Sprintf("I don't have any relevant information about '%s' in your saved memories.", query),
			Method: SearchMethodFallback,
		}
	case 1:
		return SearchResult{
			Answer:  fmt.Sprintf("Here's what I found about '%s':\n\n%s", query, matches[0].Content),
			Method:  SearchMethodFallback,
			Matches: 1,
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I found %d memories related to '%s':\n\n", len(matches), query)
	for i, mem := range matches {
		if i >= fallbackMatchLimit {
			break
		}
		fmt.Fprintf(&b, "**%d.** %s\n\n", i+1, mem.Content)
	}
	if len(matches) > fallbackMatchLimit {
		fmt.Fprintf(&b, "*(%d more memories available)*", len(matches)-fallbackMatchLimit)
	}
	return SearchResult{Answer: b.String(), Method: SearchMethodFallback, Matches: len(matches)}
}

func clamp(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
