package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/commands"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/events"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/handlers"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/memory"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/store"
)

const (
	serviceName     = "Universal Command Center API"
	serviceVersion  = "2.0.0"
	requestIDHeader = "X-Request-ID"
)

type CommandRouter interface {
	Route(ctx context.Context, query string) commands.Result
	Registry() *commands.Registry
}

type MemoryService interface {
	Load(ctx context.Context) ([]store.Memory, error)
	Page(ctx context.Context, req memory.PageRequest) (memory.Page, error)
	Delete(ctx context.Context, id string) error
}

type PageSaver interface {
	SaveScreenshot(ctx context.Context, url string, screenshot string, title string) commands.Result
	SavePage(ctx context.Context, url string, content string) commands.Result
}

type TabAnalyzer interface {
	Analyze(ctx context.Context, req handlers.TabRequest) commands.Result
}

type Broker interface {
	Subscribe(ctx context.Context, topic string) <-chan events.Event
}

// Probe reports whether a dependency is usable. It is consulted by /ready.
type Probe func(ctx context.Context) error

type Server struct {
	router   CommandRouter
	memories MemoryService
	pages    PageSaver
	tabs     TabAnalyzer
	broker   Broker
	logger   *zap.Logger
	now      func() time.Time

	probeMu sync.Mutex
	probes  map[string]Probe
}

func NewServer(router CommandRouter, memories MemoryService, pages PageSaver, tabs TabAnalyzer, broker Broker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		router:   router,
		memories: memories,
		pages:    pages,
		tabs:     tabs,
		broker:   broker,
		logger:   logger,
		now:      time.Now,
		probes:   map[string]Probe{},
	}
}

// AddProbe registers an extra readiness check next to the memory store.
func (s *Server) AddProbe(name string, probe Probe) {
	s.probeMu.Lock()
	defer s.probeMu.Unlock()
	s.probes[name] = probe
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(quietRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Post("/search", s.search)
	r.Get("/search/*", s.searchSimple)
	r.Post("/save_page", s.savePage)
	r.Post("/analyze_tabs", s.analyzeTabs)
	r.Get("/memories", s.listMemories)
	r.Get("/memories/events", s.streamMemoryEvents)
	r.Delete("/memories/{id}", s.deleteMemory)
	r.Get("/info", s.info)
	r.Get("/health", s.health)
	r.Get("/ready", s.ready)

	return r
}

// requestID echoes the caller's X-Request-ID or assigns a new one, and
// exposes it to middleware.Logger.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func quietRequestLogger(next http.Handler) http.Handler {
	logged := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shouldSuppressRequestLog(r.Method, r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		logged.ServeHTTP(w, r)
	})
}

func shouldSuppressRequestLog(method string, path string) bool {
	cleanPath := strings.TrimSpace(path)
	if method == http.MethodOptions {
		return true
	}
	if method == http.MethodGet && (cleanPath == "/health" || cleanPath == "/ready") {
		return true
	}
	if method == http.MethodGet && strings.HasSuffix(cleanPath, "/events") {
		return true
	}
	return false
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type subsystemStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status     string                     `json:"status"`
	Subsystems map[string]subsystemStatus `json:"subsystems"`
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	subsystems := map[string]subsystemStatus{}
	overall := http.StatusOK

	if _, err := s.memories.Load(ctx); err != nil {
		subsystems["store"] = subsystemStatus{Status: "error", Error: err.Error()}
		overall = http.StatusServiceUnavailable
	} else {
		subsystems["store"] = subsystemStatus{Status: "ok"}
	}

	s.probeMu.Lock()
	probes := make(map[string]Probe, len(s.probes))
	for name, probe := range s.probes {
		probes[name] = probe
	}
	s.probeMu.Unlock()

	for name, probe := range probes {
		if err := probe(ctx); err != nil {
			subsystems[name] = subsystemStatus{Status: "error", Error: err.Error()}
			overall = http.StatusServiceUnavailable
			continue
		}
		subsystems[name] = subsystemStatus{Status: "ok"}
	}

	status := "ok"
	if overall != http.StatusOK {
		status = "degraded"
	}
	writeJSONStatus(w, readinessResponse{Status: status, Subsystems: subsystems}, overall)
}

type commandInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	descriptions := s.router.Registry().Commands()
	names := make([]string, 0, len(descriptions))
	for name := range descriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	available := make([]commandInfo, 0, len(names))
	for _, name := range names {
		available = append(available, commandInfo{Name: "/" + name, Description: descriptions[name]})
	}

	writeJSONStatus(w, map[string]any{
		"service":     serviceName,
		"version":     serviceVersion,
		"description": "AI-powered command center with chat, web search, memory, and more",
		"commands":    available,
		"endpoints": map[string]string{
			"POST /search":          "Main endpoint for commands and chat",
			"GET /search/{query}":   "Simple endpoint with query as URL parameter",
			"POST /save_page":       "Save web page with AI summary (for browser extensions)",
			"POST /analyze_tabs":    "Analyze multiple tab screenshots with AI vision",
			"GET /memories":         "Get memories in structured JSON format",
			"GET /memories/events":  "Server-sent events for memory changes",
			"DELETE /memories/{id}": "Delete a specific memory by ID",
			"GET /health":           "Health check endpoint",
			"GET /ready":            "Readiness of the memory store and dependencies",
			"GET /info":             "This endpoint",
		},
	}, http.StatusOK)
}

func writeJSONStatus(w http.ResponseWriter, value any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONStatus(w, map[string]string{"detail": message}, statusCode)
}

func (s *Server) timestamp() string {
	return s.now().Format(time.RFC3339)
}

func elapsedSeconds(start time.Time, end time.Time) float64 {
	return math.Round(end.Sub(start).Seconds()*100) / 100
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Last-Event-ID, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", requestIDHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	return server.ListenAndServe()
}
