package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/commands"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/events"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/handlers"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/memory"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/store"
)

type stubHandler struct {
	name string
}

func (h stubHandler) Command() string     { return h.name }
func (h stubHandler) Description() string { return "does " + h.name }
func (h stubHandler) Help(string) string  { return "" }
func (h stubHandler) Handle(context.Context, string) commands.Result {
	return commands.OK("", nil)
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func TestNewServer(t *testing.T) {
	server := newTestDeps().server()
	require.NotNil(t, server)
	require.NotNil(t, server.Router())
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, newTestDeps())

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var payload map[string]string
	decodeBody(t, resp, &payload)
	require.Equal(t, "ok", payload["status"])
}

func TestRequestID(t *testing.T) {
	server := newTestServer(t, newTestDeps())

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	req, err := http.NewRequest(http.MethodGet, server.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-42")
	echoed, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer echoed.Body.Close()
	require.Equal(t, "req-42", echoed.Header.Get("X-Request-ID"))
}

func TestReady(t *testing.T) {
	t.Run("ready when store loads", func(t *testing.T) {
		deps := newTestDeps()
		deps.memories.On("Load", mock.Anything).Return([]store.Memory{}, nil).Once()
		server := newTestServer(t, deps)

		resp, err := http.Get(server.URL + "/ready")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var payload readinessResponse
		decodeBody(t, resp, &payload)
		require.Equal(t, "ok", payload.Status)
		require.Equal(t, "ok", payload.Subsystems["store"].Status)
		deps.assertExpectations(t)
	})

	t.Run("degraded when store fails", func(t *testing.T) {
		deps := newTestDeps()
		deps.memories.On("Load", mock.Anything).Return(nil, errors.New("disk gone")).Once()
		server := newTestServer(t, deps)

		resp, err := http.Get(server.URL + "/ready")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var payload readinessResponse
		decodeBody(t, resp, &payload)
		require.Equal(t, "degraded", payload.Status)
		require.Equal(t, "disk gone", payload.Subsystems["store"].Error)
	})

	t.Run("extra probes", func(t *testing.T) {
		deps := newTestDeps()
		deps.memories.On("Load", mock.Anything).Return([]store.Memory{}, nil).Once()
		server := deps.server()
		server.AddProbe("temporal", func(context.Context) error { return errors.New("unreachable") })
		server.AddProbe("postgres", func(context.Context) error { return nil })

		w := httptest.NewRecorder()
		server.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		var payload readinessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
		require.Equal(t, "error", payload.Subsystems["temporal"].Status)
		require.Equal(t, "ok", payload.Subsystems["postgres"].Status)
		require.Equal(t, "ok", payload.Subsystems["store"].Status)
	})
}

func TestInfo(t *testing.T) {
	deps := newTestDeps()
	deps.router.Registry().MustRegister(stubHandler{name: "web"}, stubHandler{name: "chat"})
	server := newTestServer(t, deps)

	resp, err := http.Get(server.URL + "/info")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Service  string            `json:"service"`
		Commands []commandInfo     `json:"commands"`
		Routes   map[string]string `json:"endpoints"`
	}
	decodeBody(t, resp, &payload)
	require.Equal(t, serviceName, payload.Service)
	require.Equal(t, []commandInfo{
		{Name: "/chat", Description: "does chat"},
		{Name: "/web", Description: "does web"},
	}, payload.Commands)
	require.Contains(t, payload.Routes, "POST /search")
}

func TestSearch(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		deps := newTestDeps()
		deps.router.On("Route", mock.Anything, "/web golang").
			Return(commands.OK("Go is great", map[string]any{"command": "web"})).Once()
		server := newTestServer(t, deps)

		resp := postJSON(t, server.URL+"/search", `{"query":"/web golang","include_sources":false}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var payload searchResponse
		decodeBody(t, resp, &payload)
		require.Equal(t, "/web golang", payload.Query)
		require.Equal(t, "Go is great", payload.Summary)
		require.Equal(t, "completed", payload.Status)
		require.False(t, payload.SourcesIncluded)
		require.Equal(t, "2024-01-12T14:30:22Z", payload.Timestamp)
		deps.assertExpectations(t)
	})

	t.Run("include sources defaults to true", func(t *testing.T) {
		deps := newTestDeps()
		deps.router.On("Route", mock.Anything, "hello").Return(commands.OK("hi", nil)).Once()
		server := newTestServer(t, deps)

		resp := postJSON(t, server.URL+"/search", `{"query":"hello"}`)
		var payload searchResponse
		decodeBody(t, resp, &payload)
		require.True(t, payload.SourcesIncluded)
	})

	t.Run("failure result", func(t *testing.T) {
		deps := newTestDeps()
		deps.router.On("Route", mock.Anything, "/nope").
			Return(commands.Fail("❌ Unknown command: /nope", "Unknown command: nope", map[string]any{"command": "nope"})).Once()
		server := newTestServer(t, deps)

		resp := postJSON(t, server.URL+"/search", `{"query":"/nope"}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var payload searchFailure
		decodeBody(t, resp, &payload)
		require.Equal(t, "Unknown command: nope", payload.Error)
		require.Equal(t, "/nope", payload.Query)
		require.Equal(t, "nope", payload.Metadata["command"])
	})

	t.Run("validation", func(t *testing.T) {
		deps := newTestDeps()
		server := newTestServer(t, deps)

		require.Equal(t, http.StatusUnprocessableEntity, postJSON(t, server.URL+"/search", `{"query":""}`).StatusCode)
		require.Equal(t, http.StatusUnprocessableEntity, postJSON(t, server.URL+"/search", `not json`).StatusCode)
		long := `{"query":"` + strings.Repeat("a", maxQueryLength+1) + `"}`
		require.Equal(t, http.StatusUnprocessableEntity, postJSON(t, server.URL+"/search", long).StatusCode)
		deps.router.AssertNotCalled(t, "Route", mock.Anything, mock.Anything)
	})

	t.Run("get with encoded command", func(t *testing.T) {
		deps := newTestDeps()
		deps.router.On("Route", mock.Anything, "/web golang").Return(commands.OK("ok", nil)).Once()
		server := newTestServer(t, deps)

		resp, err := http.Get(server.URL + "/search/%2Fweb%20golang")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		deps.assertExpectations(t)
	})
}

func TestResultText(t *testing.T) {
	require.Equal(t, "", resultText(nil))
	require.Equal(t, "plain", resultText("plain"))
	require.Equal(t, `{"a":1}`, resultText(map[string]int{"a": 1}))
}

func TestSavePage(t *testing.T) {
	t.Run("screenshot saved", func(t *testing.T) {
		deps := newTestDeps()
		deps.pages.On("SaveScreenshot", mock.Anything, "https://example.com", "aGVsbG8=", "Example").
			Return(commands.OK("✅ saved", map[string]any{"memory_id": "mem_1", "summary": "A page about examples"})).Once()
		server := newTestServer(t, deps)

		resp := postJSON(t, server.URL+"/save_page", `{"url":"https://example.com","screenshot":"aGVsbG8=","title":"Example"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var payload savePageResponse
		decodeBody(t, resp, &payload)
		require.True(t, payload.Success)
		require.Equal(t, "mem_1", payload.MemoryID)
		require.Equal(t, "A page about examples", payload.Summary)
		deps.assertExpectations(t)
	})

	t.Run("falls back to text content", func(t *testing.T) {
		deps := newTestDeps()
		deps.pages.On("SaveScreenshot", mock.Anything, "https://example.com", "bad", "").
			Return(commands.Fail("❌ invalid", "invalid base64 image", nil)).Once()
		deps.pages.On("SavePage", mock.Anything, "https://example.com", "page text").
			Return(commands.OK("✅ saved", map[string]any{"memory_id": "mem_2"})).Once()
		server := newTestServer(t, deps)

		resp := postJSON(t, server.URL+"/save_page", `{"url":"https://example.com","screenshot":"bad","content":"page text"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var payload savePageResponse
		decodeBody(t, resp, &payload)
		require.Equal(t, "mem_2", payload.MemoryID)
		require.Contains(t, payload.Summary, "screenshot analysis failed")
		deps.router.AssertNotCalled(t, "Route", mock.Anything, mock.Anything)
		deps.assertExpectations(t)
	})

	t.Run("failure without content", func(t *testing.T) {
		deps := newTestDeps()
		deps.pages.On("SaveScreenshot", mock.Anything, "https://example.com", "bad", "").
			Return(commands.Fail("❌ invalid", "invalid base64 image", nil)).Once()
		server := newTestServer(t, deps)

		resp := postJSON(t, server.URL+"/save_page", `{"url":"https://example.com","screenshot":"bad"}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		deps.pages.AssertNotCalled(t, "SavePage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing fields", func(t *testing.T) {
		server := newTestServer(t, newTestDeps())
		resp := postJSON(t, server.URL+"/save_page", `{"url":"https://example.com"}`)
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestAnalyzeTabs(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		deps := newTestDeps()
		deps.tabs.On("Analyze", mock.Anything, handlers.TabRequest{
			Images:  []string{"img1", "img2"},
			Query:   "compare",
			TabURLs: []string{"https://a.test", "https://b.test"},
		}).Return(commands.OK("**compare**\n\nsame", map[string]any{"tab_count": 2})).Once()
		server := newTestServer(t, deps)

		resp := postJSON(t, server.URL+"/analyze_tabs", `{"images":["img1","img2"],"query":"compare","tab_urls":["https://a.test","https://b.test"]}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var payload map[string]any
		decodeBody(t, resp, &payload)
		require.Equal(t, true, payload["success"])
		require.Equal(t, "**compare**\n\nsame", payload["data"])
		deps.assertExpectations(t)
	})

	t.Run("missing images or query", func(t *testing.T) {
		deps := newTestDeps()
		server := newTestServer(t, deps)

		require.Equal(t, http.StatusBadRequest, postJSON(t, server.URL+"/analyze_tabs", `{"query":"q"}`).StatusCode)
		require.Equal(t, http.StatusBadRequest, postJSON(t, server.URL+"/analyze_tabs", `{"images":["x"]}`).StatusCode)
		deps.tabs.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
	})
}

func TestListMemories(t *testing.T) {
	t.Run("pagination and filter", func(t *testing.T) {
		deps := newTestDeps()
		deps.memories.On("Page", mock.Anything, memory.PageRequest{Offset: 1, Limit: 2, Type: "webpage"}).
			Return(memory.Page{
				Memories: []store.Memory{{ID: "mem_2", Content: "two"}, {ID: "mem_1", Content: "one"}},
				Total:    4,
				HasMore:  true,
			}, nil).Once()
		server := newTestServer(t, deps)

		resp, err := http.Get(server.URL + "/memories?limit=2&offset=1&type=webpage")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var payload memoriesResponse
		decodeBody(t, resp, &payload)
		require.Equal(t, 4, payload.TotalCount)
		require.Equal(t, 2, payload.DisplayedCount)
		require.True(t, payload.HasMore)
		require.Equal(t, "mem_2", payload.Memories[0].ID)
		deps.assertExpectations(t)
	})

	t.Run("no limit is unbounded", func(t *testing.T) {
		deps := newTestDeps()
		deps.memories.On("Page", mock.Anything, memory.PageRequest{Offset: 0, Limit: -1}).
			Return(memory.Page{Memories: []store.Memory{}}, nil).Once()
		server := newTestServer(t, deps)

		resp, err := http.Get(server.URL + "/memories")
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), `"memories":[]`)
		deps.assertExpectations(t)
	})

	t.Run("invalid parameters", func(t *testing.T) {
		server := newTestServer(t, newTestDeps())
		for _, query := range []string{"limit=abc", "limit=-1", "offset=-2"} {
			resp, err := http.Get(server.URL + "/memories?" + query)
			require.NoError(t, err)
			resp.Body.Close()
			require.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
		}
	})

	t.Run("store error", func(t *testing.T) {
		deps := newTestDeps()
		deps.memories.On("Page", mock.Anything, mock.Anything).Return(memory.Page{}, errors.New("boom")).Once()
		server := newTestServer(t, deps)

		resp, err := http.Get(server.URL + "/memories")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestDeleteMemory(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "deleted", err: nil, status: http.StatusOK},
		{name: "missing", err: memory.ErrNotFound, status: http.StatusNotFound},
		{name: "store error", err: errors.New("disk full"), status: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			deps := newTestDeps()
			deps.memories.On("Delete", mock.Anything, "mem_20240112143022").Return(tc.err).Once()
			server := newTestServer(t, deps)

			req, err := http.NewRequest(http.MethodDelete, server.URL+"/memories/mem_20240112143022", nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tc.status, resp.StatusCode)
			deps.assertExpectations(t)
		})
	}
}

func TestStreamMemoryEvents(t *testing.T) {
	t.Run("stream", func(t *testing.T) {
		deps := newTestDeps()
		broker := events.NewBroker()
		deps.broker = broker
		server := newTestServer(t, deps)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/memories/events", nil)
		require.NoError(t, err)

		client := &http.Client{Timeout: time.Second}
		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

		go func() {
			deadline := time.Now().Add(time.Second)
			for broker.SubscriberCount(events.TopicMemories) == 0 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			broker.Publish(events.Event{Topic: events.TopicMemories, Type: events.TypeMemoryCreated, MemoryID: "mem_1"})
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		body, err := io.ReadAll(resp.Body)
		if err != nil && !errors.Is(err, context.Canceled) {
			require.NoError(t, err)
		}
		text := string(body)
		require.Contains(t, text, "event: memory.created")
		require.Contains(t, text, `"memory_id":"mem_1"`)
	})

	t.Run("no flusher", func(t *testing.T) {
		server := newTestDeps().server()
		w := &noFlushWriter{}
		server.streamMemoryEvents(w, httptest.NewRequest(http.MethodGet, "/memories/events", nil))
		require.Equal(t, http.StatusInternalServerError, w.status)
	})

	t.Run("closed channel", func(t *testing.T) {
		deps := newTestDeps()
		brokerMock := &MockBroker{}
		ch := make(chan events.Event)
		close(ch)
		brokerMock.On("Subscribe", mock.Anything, events.TopicMemories).Return(ch).Once()
		deps.broker = brokerMock

		w := httptest.NewRecorder()
		deps.server().streamMemoryEvents(w, httptest.NewRequest(http.MethodGet, "/memories/events", nil))

		require.Equal(t, http.StatusOK, w.Code)
		brokerMock.AssertExpectations(t)
	})
}

func TestCORSMiddleware(t *testing.T) {
	server := newTestServer(t, newTestDeps())

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/search", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "OPTIONS")
}

func TestShouldSuppressRequestLog(t *testing.T) {
	require.True(t, shouldSuppressRequestLog(http.MethodGet, "/health"))
	require.True(t, shouldSuppressRequestLog(http.MethodGet, "/memories/events"))
	require.True(t, shouldSuppressRequestLog(http.MethodOptions, "/search"))
	require.False(t, shouldSuppressRequestLog(http.MethodPost, "/search"))
	require.False(t, shouldSuppressRequestLog(http.MethodGet, "/memories"))
}

func TestStart(t *testing.T) {
	server := newTestDeps().server()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	result := make(chan error, 1)
	go func() {
		result <- server.Start(ctx, addr)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	err = <-result
	require.ErrorIs(t, err, http.ErrServerClosed)
}

func TestSendSSE(t *testing.T) {
	buf := &bytes.Buffer{}
	w := bufio.NewWriter(buf)

	writer := &bufferWriter{Writer: w, header: http.Header{}}
	sendSSE(writer, events.Event{Topic: events.TopicMemories, Seq: 5, Type: events.TypeMemoryDeleted, MemoryID: "mem_9"})
	require.NoError(t, w.Flush())

	text := buf.String()
	require.Contains(t, text, "id: memories:5")
	require.Contains(t, text, "event: memory.deleted")
	require.Contains(t, text, "mem_9")
}

type noFlushWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (w *noFlushWriter) Header() http.Header {
	if w.header == nil {
		w.header = make(http.Header)
	}
	return w.header
}

func (w *noFlushWriter) WriteHeader(status int) {
	w.status = status
}

func (w *noFlushWriter) Write(data []byte) (int, error) {
	return w.body.Write(data)
}

type bufferWriter struct {
	*bufio.Writer
	header http.Header
}

func (w *bufferWriter) Header() http.Header {
	return w.header
}

func (w *bufferWriter) WriteHeader(statusCode int) {
}
