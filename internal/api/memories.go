package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/events"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/memory"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/store"
)

type memoriesResponse struct {
	Memories       []store.Memory `json:"memories"`
	TotalCount     int            `json:"total_count"`
	DisplayedCount int            `json:"displayed_count"`
	HasMore        bool           `json:"has_more"`
}

func (s *Server) listMemories(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := parseNonNegative(query.Get("limit"), -1)
	if err != nil {
		writeError(w, "invalid limit", http.StatusBadRequest)
		return
	}
	offset, err := parseNonNegative(query.Get("offset"), 0)
	if err != nil {
		writeError(w, "invalid offset", http.StatusBadRequest)
		return
	}

	page, err := s.memories.Page(r.Context(), memory.PageRequest{
		Offset: offset,
		Limit:  limit,
		Type:   strings.TrimSpace(query.Get("type")),
	})
	if err != nil {
		s.logger.Error("list memories failed", zap.Error(err))
		writeError(w, fmt.Sprintf("Failed to retrieve memories: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, memoriesResponse{
		Memories:       page.Memories,
		TotalCount:     page.Total,
		DisplayedCount: len(page.Memories),
		HasMore:        page.HasMore,
	}, http.StatusOK)
}

func parseNonNegative(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if value < 0 {
		return 0, fmt.Errorf("negative value %d", value)
	}
	return value, nil
}

func (s *Server) deleteMemory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.memories.Delete(r.Context(), id)
	switch {
	case err == nil:
		writeJSONStatus(w, map[string]any{
			"success":    true,
			"message":    fmt.Sprintf("Memory %s deleted successfully", id),
			"deleted_id": id,
		}, http.StatusOK)
	case errors.Is(err, memory.ErrNotFound), errors.Is(err, memory.ErrEmptyID):
		writeError(w, fmt.Sprintf("Memory with ID %s not found", id), http.StatusNotFound)
	default:
		s.logger.Error("delete memory failed", zap.String("memory_id", id), zap.Error(err))
		writeError(w, fmt.Sprintf("Failed to delete memory: %v", err), http.StatusInternalServerError)
	}
}

// streamMemoryEvents pushes memory.created and memory.deleted events to the
// client until it disconnects.
func (s *Server) streamMemoryEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	eventsChan := s.broker.Subscribe(ctx, events.TopicMemories)
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case event, ok := <-eventsChan:
			if !ok {
				return
			}
			sendSSE(w, event)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func sendSSE(w http.ResponseWriter, event events.Event) {
	payload, _ := json.Marshal(event)
	fmt.Fprintf(w, "id: %s:%d\n", event.Topic, event.Seq)
	fmt.Fprintf(w, "event: %s\n", event.Type)
	fmt.Fprintf(w, "data: %s\n\n", payload)
}
