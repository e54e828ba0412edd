package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/commands"
	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/handlers"
)

const pageSummaryPreview = 500

type savePageRequest struct {
	URL        string `json:"url"`
	Screenshot string `json:"screenshot"`
	Title      string `json:"title"`
	Content    string `json:"content"`
}

type savePageResponse struct {
	Success   bool   `json:"success"`
	MemoryID  string `json:"memory_id"`
	URL       string `json:"url"`
	Summary   string `json:"summary"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) savePage(w http.ResponseWriter, r *http.Request) {
	var req savePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid JSON body", http.StatusUnprocessableEntity)
		return
	}
	if strings.TrimSpace(req.URL) == "" || req.Screenshot == "" {
		writeError(w, "url and screenshot are required", http.StatusUnprocessableEntity)
		return
	}

	result := s.pages.SaveScreenshot(r.Context(), req.URL, req.Screenshot, req.Title)
	if result.Success {
		summary, _ := result.Metadata["summary"].(string)
		if summary == "" {
			summary = "Saved without AI analysis"
		}
		writeJSONStatus(w, savePageResponse{
			Success:   true,
			MemoryID:  metadataString(result.Metadata, "memory_id"),
			URL:       req.URL,
			Summary:   clip(summary, pageSummaryPreview),
			Timestamp: s.timestamp(),
		}, http.StatusOK)
		return
	}

	s.logger.Warn("screenshot save failed", zap.String("url", req.URL), zap.String("error", result.Error))
	if strings.TrimSpace(req.Content) != "" {
		fallback := s.pages.SavePage(r.Context(), req.URL, req.Content)
		if fallback.Success {
			writeJSONStatus(w, savePageResponse{
				Success:   true,
				MemoryID:  metadataString(fallback.Metadata, "memory_id"),
				URL:       req.URL,
				Summary:   "Saved with text content (screenshot analysis failed)",
				Timestamp: s.timestamp(),
			}, http.StatusOK)
			return
		}
		s.logger.Warn("text fallback save failed", zap.String("url", req.URL), zap.String("error", fallback.Error))
	}

	writeJSONStatus(w, map[string]any{
		"error":     result.Error,
		"metadata":  result.Metadata,
		"url":       req.URL,
		"timestamp": s.timestamp(),
	}, http.StatusBadRequest)
}

type analyzeTabsRequest struct {
	Images  []string `json:"images"`
	Query   string   `json:"query"`
	TabURLs []string `json:"tab_urls"`
}

func (s *Server) analyzeTabs(w http.ResponseWriter, r *http.Request) {
	var req analyzeTabsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if len(req.Images) == 0 {
		writeError(w, "No images provided", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, "No query provided", http.StatusBadRequest)
		return
	}

	result := s.tabs.Analyze(r.Context(), handlers.TabRequest{
		Images:  req.Images,
		Query:   req.Query,
		TabURLs: req.TabURLs,
	})
	writeJSONStatus(w, tabsResponse(result), http.StatusOK)
}

func tabsResponse(result commands.Result) map[string]any {
	return map[string]any{
		"success":  result.Success,
		"data":     result.Data,
		"metadata": result.Metadata,
		"error":    result.Error,
	}
}

func metadataString(metadata map[string]any, key string) string {
	value, _ := metadata[key].(string)
	return value
}
