// Package memory implements the user knowledge base: durable notes and page
// summaries with AI-assisted search and a deterministic fallback.
package memory

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/events"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/llm"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/store"
)

const (
	TimestampLayout = "2006-01-02T15:04:05.000000"
	CreatedAtLayout = "2006-01-02 15:04:05"
	idLayout        = "20060102150405"

	fallbackMatchLimit = 5
	pagePreviewLimit   = 500
	pageFallbackLimit  = 1000
)

var (
	ErrEmptyContent = errors.New("memory content is empty")
	ErrEmptyQuery   = errors.New("search query is empty")
	ErrEmptyID      = errors.New("memory id is empty")
	ErrNotFound     = errors.New("memory not found")
	ErrMissingURL   = errors.New("page url is required")
	ErrInvalidImage = errors.New("invalid base64 image")
)

// Searcher answers a question from the full set of memories.
type Searcher interface {
	SearchMemories(ctx context.Context, query string, memories []store.Memory) (string, error)
}

type PageSummarizer interface {
	SummarizePage(ctx context.Context, url string, content string) (string, error)
}

type ScreenshotAnalyzer interface {
	AnalyzeScreenshot(ctx context.Context, url string, title string, screenshot string) (string, error)
}

type Publisher interface {
	Publish(event events.Event)
}

type Options struct {
	Searcher   Searcher
	Summarizer PageSummarizer
	Analyzer   ScreenshotAnalyzer
	Publisher  Publisher
	Logger     *zap.Logger
	Now        func() time.Time
}

// Store serialises every read-modify-write cycle behind a mutex, so
// concurrent creates and deletes never lose updates within one process.
type Store struct {
	mu   sync.Mutex
	repo store.Repository

	searcher   Searcher
	summarizer PageSummarizer
	analyzer   ScreenshotAnalyzer
	publisher  Publisher
	logger     *zap.Logger
	now        func() time.Time
}

func New(repo store.Repository, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		repo:       repo,
		searcher:   opts.Searcher,
		summarizer: opts.Summarizer,
		analyzer:   opts.Analyzer,
		publisher:  opts.Publisher,
		logger:     logger,
		now:        now,
	}
}

// Load returns the stored collection in persisted order. Corrupt data is
// logged and treated as an empty collection.
func (s *Store) Load(ctx context.Context) ([]store.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) ([]store.Memory, error) {
	memories, err := s.repo.Load(ctx)
	if errors.Is(err, store.ErrCorrupt) {
		s.logger.Warn("memory data unreadable, continuing with an empty collection", zap.Error(err))
		return []store.Memory{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load memories: %w", err)
	}
	return memories, nil
}

func (s *Store) save(ctx context.Context, memories []store.Memory) error {
	if err := s.repo.Save(ctx, memories); err != nil {
		return fmt.Errorf("save memories: %w", err)
	}
	return nil
}

// Create stores a plain note.
func (s *Store) Create(ctx context.Context, content string) (store.Memory, error) {
	if strings.TrimSpace(content) == "" {
		return store.Memory{}, ErrEmptyContent
	}
	return s.append(ctx, store.Memory{Content: content})
}

// append stamps id and timestamps on mem under the lock and persists it.
func (s *Store) append(ctx context.Context, mem store.Memory) (store.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	memories, err := s.load(ctx)
	if err != nil {
		return store.Memory{}, err
	}
	now := s.now()
	mem.ID = nextID(now, memories)
	mem.Timestamp = now.Format(TimestampLayout)
	mem.CreatedAt = now.Format(CreatedAtLayout)

	memories = append(memories, mem)
	if err := s.save(ctx, memories); err != nil {
		return store.Memory{}, err
	}
	s.publish(events.TypeMemoryCreated, mem.ID, map[string]any{"type": mem.Type, "url": mem.URL})
	return mem, nil
}

// nextID derives mem_<YYYYMMDDHHMMSS> from now. A second memory created within
// the same second gets a numeric suffix.
func nextID(now time.Time, existing []store.Memory) string {
	base := "mem_" + now.Format(idLayout)
	taken := make(map[string]struct{}, len(existing))
	for _, mem := range existing {
		taken[mem.ID] = struct{}{}
	}
	if _, ok := taken[base]; !ok {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", base, n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

type PageSave struct {
	Memory  store.Memory
	Summary string
	// SummaryErr is set when summarisation failed and a content preview was
	// stored instead.
	SummaryErr error
}

// SavePage stores a page summary. When the summarizer is missing or fails the
// first 1000 characters of content are kept as a preview instead.
func (s *Store) SavePage(ctx context.Context, url string, content string) (PageSave, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return PageSave{}, ErrMissingURL
	}
	if strings.TrimSpace(content) == "" {
		return PageSave{}, ErrEmptyContent
	}

	summary, err := s.summarize(ctx, url, content)
	if err != nil {
		s.logger.Warn("page summary failed, saving content preview", zap.String("url", url), zap.Error(err))
		mem, saveErr := s.append(ctx, store.Memory{
			Type:    store.TypeWebpage,
			URL:     url,
			Content: fmt.Sprintf("URL: %s\n\nContent Preview:\n%s...", url, truncate(content, pageFallbackLimit)),
		})
		if saveErr != nil {
			return PageSave{}, saveErr
		}
		return PageSave{Memory: mem, SummaryErr: err}, nil
	}

	mem, err := s.append(ctx, store.Memory{
		Type:                   store.TypeWebpage,
		URL:                    url,
		Content:                fmt.Sprintf("URL: %s\n\nSummary:\n%s", url, summary),
		OriginalContentPreview: Ellipsize(content, pagePreviewLimit),
	})
	if err != nil {
		return PageSave{}, err
	}
	return PageSave{Memory: mem, Summary: summary}, nil
}

func (s *Store) summarize(ctx context.Context, url string, content string) (string, error) {
	if s.summarizer == nil {
		return "", errors.New("page summarizer is not configured")
	}
	summary, err := s.summarizer.SummarizePage(ctx, url, content)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(summary) == "" {
		return "", llm.ErrEmptyResponse
	}
	return summary, nil
}

// SaveScreenshot stores a visual summary of a page screenshot. Invalid base64
// is rejected; an analysis failure still stores the page with a note.
func (s *Store) SaveScreenshot(ctx context.Context, url string, screenshot string, title string) (PageSave, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return PageSave{}, ErrMissingURL
	}
	_, payload := llm.SplitDataURL(screenshot)
	if payload == "" {
		return PageSave{}, ErrInvalidImage
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return PageSave{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	header := "URL: " + url + "\n"
	if title != "" {
		header += "Title: " + title + "\n"
	}
	storedTitle := title
	if storedTitle == "" {
		storedTitle = "Untitled Page"
	}

	summary, err := s.analyze(ctx, url, title, screenshot)
	if err != nil {
		s.logger.Warn("screenshot analysis failed, saving page without summary", zap.String("url", url), zap.Error(err))
		mem, saveErr := s.append(ctx, store.Memory{
			Type:          store.TypeWebpageScreenshot,
			URL:           url,
			Title:         storedTitle,
			Content:       header + "\n*Screenshot saved but analysis failed*",
			HasScreenshot: true,
		})
		if saveErr != nil {
			return PageSave{}, saveErr
		}
		return PageSave{Memory: mem, SummaryErr: err}, nil
	}

	mem, err := s.append(ctx, store.Memory{
		Type:          store.TypeWebpageScreenshot,
		URL:           url,
		Title:         storedTitle,
		Content:       header + "\nVisual Summary:\n" + summary,
		HasScreenshot: true,
	})
	if err != nil {
		return PageSave{}, err
	}
	return PageSave{Memory: mem, Summary: summary}, nil
}

func (s *Store) analyze(ctx context.Context, url string, title string, screenshot string) (string, error) {
	if s.analyzer == nil {
		return "", errors.New("screenshot analyzer is not configured")
	}
	summary, err := s.analyzer.AnalyzeScreenshot(ctx, url, title, screenshot)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(summary) == "" {
		return "", llm.ErrEmptyResponse
	}
	return summary, nil
}

// Delete removes the memory with id and rewrites the collection.
func (s *Store) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	memories, err := s.load(ctx)
	if err != nil {
		return err
	}
	kept := make([]store.Memory, 0, len(memories))
	for _, mem := range memories {
		if mem.ID != id {
			kept = append(kept, mem)
		}
	}
	if len(kept) == len(memories) {
		return ErrNotFound
	}
	if err := s.save(ctx, kept); err != nil {
		return err
	}
	s.publish(events.TypeMemoryDeleted, id, nil)
	return nil
}

func (s *Store) publish(eventType string, id string, payload map[string]any) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(events.Event{
		Topic:    events.TopicMemories,
		Type:     eventType,
		MemoryID: id,
		Payload:  payload,
	})
}

// sortNewestFirst orders by timestamp descending, keeping persisted order
// for equal timestamps.
func sortNewestFirst(memories []store.Memory) {
	sort.SliceStable(memories, func(i, j int) bool {
		return memories[i].Timestamp > memories[j].Timestamp
	})
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// Ellipsize clips text to limit runes, appending "..." when it was longer.
func Ellipsize(text string, limit int) string {
	if len([]rune(text)) <= limit {
		return text
	}
	return truncate(text, limit) + "..."
}
