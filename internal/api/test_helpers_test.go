package api

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/commands"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/events"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/handlers"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/memory"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/store"
)

type MockRouter struct {
	mock.Mock
	registry *commands.Registry
}

func (m *MockRouter) Route(ctx context.Context, query string) commands.Result {
	args := m.Called(ctx, query)
	return args.Get(0).(commands.Result)
}

func (m *MockRouter) Registry() *commands.Registry {
	if m.registry == nil {
		m.registry = commands.NewRegistry()
	}
	return m.registry
}

type MockMemoryService struct {
	mock.Mock
}

func (m *MockMemoryService) Load(ctx context.Context) ([]store.Memory, error) {
	args := m.Called(ctx)
	var result []store.Memory
	if value := args.Get(0); value != nil {
		result = value.([]store.Memory)
	}
	return result, args.Error(1)
}

func (m *MockMemoryService) Page(ctx context.Context, req memory.PageRequest) (memory.Page, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(memory.Page), args.Error(1)
}

func (m *MockMemoryService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockPageSaver struct {
	mock.Mock
}

func (m *MockPageSaver) SaveScreenshot(ctx context.Context, url string, screenshot string, title string) commands.Result {
	args := m.Called(ctx, url, screenshot, title)
	return args.Get(0).(commands.Result)
}

func (m *MockPageSaver) SavePage(ctx context.Context, url string, content string) commands.Result {
	args := m.Called(ctx, url, content)
	return args.Get(0).(commands.Result)
}

type MockTabAnalyzer struct {
	mock.Mock
}

func (m *MockTabAnalyzer) Analyze(ctx context.Context, req handlers.TabRequest) commands.Result {
	args := m.Called(ctx, req)
	return args.Get(0).(commands.Result)
}

type MockBroker struct {
	mock.Mock
}

func (m *MockBroker) Subscribe(ctx context.Context, topic string) <-chan events.Event {
	args := m.Called(ctx, topic)
	if value := args.Get(0); value != nil {
		if ch, ok := value.(chan events.Event); ok {
			return ch
		}
		if ch, ok := value.(<-chan events.Event); ok {
			return ch
		}
	}
	return nil
}

type testDeps struct {
	router   *MockRouter
	memories *MockMemoryService
	pages    *MockPageSaver
	tabs     *MockTabAnalyzer
	broker   Broker
}

func newTestDeps() *testDeps {
	return &testDeps{
		router:   &MockRouter{},
		memories: &MockMemoryService{},
		pages:    &MockPageSaver{},
		tabs:     &MockTabAnalyzer{},
		broker:   &MockBroker{},
	}
}

func (d *testDeps) server() *Server {
	server := NewServer(d.router, d.memories, d.pages, d.tabs, d.broker, nil)
	server.now = func() time.Time { return time.Date(2024, 1, 12, 14, 30, 22, 0, time.UTC) }
	return server
}

func (d *testDeps) assertExpectations(t *testing.T) {
	t.Helper()
	d.router.AssertExpectations(t)
	d.memories.AssertExpectations(t)
	d.pages.AssertExpectations(t)
	d.tabs.AssertExpectations(t)
}

func newTestServer(t *testing.T, deps *testDeps) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(deps.server().Router())
	t.Cleanup(server.Close)
	return server
}
