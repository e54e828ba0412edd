package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/agents"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/search"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/transcript"
)

type MockResearcher struct {
	mock.Mock
}

func (m *MockResearcher) Research(ctx context.Context, query string) (search.Research, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(search.Research), args.Error(1)
}

type MockReplier struct {
	mock.Mock
}

func (m *MockReplier) Reply(ctx context.Context, message string) (string, error) {
	args := m.Called(ctx, message)
	return args.String(0), args.Error(1)
}

type MockScriptGenerator struct {
	mock.Mock
}

func (m *MockScriptGenerator) GenerateScript(ctx context.Context, description string) (string, error) {
	args := m.Called(ctx, description)
	return args.String(0), args.Error(1)
}

type MockTabAnalyzer struct {
	mock.Mock
}

func (m *MockTabAnalyzer) AnalyzeTabs(ctx context.Context, input agents.TabAnalysis) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

// stubFetcher serves transcripts by URL and records every fetch.
type stubFetcher struct {
	mu      sync.Mutex
	byURL   map[string]string
	fetched []string
}

func (f *stubFetcher) Fetch(ctx context.Context, videoURL string) (transcript.Transcript, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, videoURL)
	f.mu.Unlock()
	text, ok := f.byURL[videoURL]
	if !ok {
		return transcript.Transcript{}, errors.New("captions disabled")
	}
	return transcript.Transcript{VideoID: transcript.VideoID(videoURL), URL: videoURL, Text: text, Segments: 1}, nil
}

func fixedClock(times ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	}
}
