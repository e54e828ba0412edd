package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxQueryLength = 10000

type searchRequest struct {
	Query          string `json:"query"`
	IncludeSources *bool  `json:"include_sources"`
}

type searchResponse struct {
	Query           string  `json:"query"`
	Summary         string  `json:"summary"`
	Timestamp       string  `json:"timestamp"`
	ProcessingTime  float64 `json:"processing_time"`
	SourcesIncluded bool    `json:"sources_included"`
	Status          string  `json:"status"`
}

type searchFailure struct {
	Error          string         `json:"error"`
	Metadata       map[string]any `json:"metadata"`
	Query          string         `json:"query"`
	Timestamp      string         `json:"timestamp"`
	ProcessingTime float64        `json:"processing_time"`
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid JSON body", http.StatusUnprocessableEntity)
		return
	}
	includeSources := true
	if req.IncludeSources != nil {
		includeSources = *req.IncludeSources
	}
	s.runSearch(w, r, req.Query, includeSources)
}

// searchSimple takes the query from the rest of the path, so
// /search/%2Fweb%20golang routes "/web golang".
func (s *Server) searchSimple(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "*")
	query, err := url.PathUnescape(raw)
	if err != nil {
		query = raw
	}
	s.runSearch(w, r, query, true)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, query string, includeSources bool) {
	if strings.TrimSpace(query) == "" {
		writeError(w, "query is required", http.StatusUnprocessableEntity)
		return
	}
	if utf8.RuneCountInString(query) > maxQueryLength {
		writeError(w, "query must be at most 10000 characters", http.StatusUnprocessableEntity)
		return
	}

	start := s.now()
	result := s.router.Route(r.Context(), query)
	elapsed := elapsedSeconds(start, s.now())

	if !result.Success {
		s.logger.Info("command failed",
			zap.String("query", clip(query, 100)),
			zap.String("error", result.Error),
		)
		writeJSONStatus(w, searchFailure{
			Error:          result.Error,
			Metadata:       result.Metadata,
			Query:          query,
			Timestamp:      s.timestamp(),
			ProcessingTime: elapsed,
		}, http.StatusBadRequest)
		return
	}

	writeJSONStatus(w, searchResponse{
		Query:           query,
		Summary:         resultText(result.Data),
		Timestamp:       s.timestamp(),
		ProcessingTime:  elapsed,
		SourcesIncluded: includeSources,
		Status:          "completed",
	}, http.StatusOK)
}

func resultText(data any) string {
	switch value := data.(type) {
	case nil:
		return ""
	case string:
		return value
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

func clip(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
