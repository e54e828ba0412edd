// Package search runs web research: semantic search through Exa followed by
// an LLM written summary of the sources.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL    = "https://api.exa.ai"
	DefaultNumResults = 5
	defaultRecency    = 7 * 24 * time.Hour
	textLimit         = 1000
)

var ErrMissingAPIKey = errors.New("EXA_API_KEY is not configured")

type Result struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	PublishedDate string   `json:"publishedDate,omitempty"`
	Author        string   `json:"author,omitempty"`
	Text          string   `json:"text,omitempty"`
	Highlights    []string `json:"highlights,omitempty"`
}

type Config struct {
	APIKey     string
	BaseURL    string
	NumResults int
	// Recency limits results to pages published within the window. Zero
	// uses one week; a negative value disables the filter.
	Recency time.Duration
	Client  *http.Client
	Now     func() time.Time
}

type Client struct {
	apiKey     string
	baseURL    string
	numResults int
	recency    time.Duration
	client     *http.Client
	now        func() time.Time
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	numResults := cfg.NumResults
	if numResults <= 0 {
		numResults = DefaultNumResults
	}
	recency := cfg.Recency
	if recency == 0 {
		recency = defaultRecency
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    baseURL,
		numResults: numResults,
		recency:    recency,
		client:     client,
		now:        now,
	}
}

type searchRequest struct {
	Query              string         `json:"query"`
	Type               string         `json:"type"`
	NumResults         int            `json:"numResults"`
	StartPublishedDate string         `json:"startPublishedDate,omitempty"`
	Contents           searchContents `json:"contents"`
}

type searchContents struct {
	Text       textOptions      `json:"text"`
	Highlights highlightOptions `json:"highlights"`
}

type textOptions struct {
	MaxCharacters   int  `json:"maxCharacters"`
	IncludeHTMLTags bool `json:"includeHtmlTags"`
}

type highlightOptions struct {
	NumSentences     int    `json:"numSentences"`
	HighlightsPerURL int    `json:"highlightsPerUrl"`
	Query            string `json:"query,omitempty"`
}

type searchResponse struct {
	Results []Result `json:"results"`
}

// Search runs a neural search and returns results with text and highlights.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	body := searchRequest{
		Query:      query,
		Type:       "neural",
		NumResults: c.numResults,
		Contents: searchContents{
			Text: textOptions{MaxCharacters: textLimit},
			Highlights: highlightOptions{
				NumSentences:     3,
				HighlightsPerURL: 2,
				Query:            "key insights and main points",
			},
		},
	}
	if c.recency > 0 {
		body.StartPublishedDate = c.now().UTC().Add(-c.recency).Format("2006-01-02")
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exa search: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read exa response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("exa search failed: %s", strings.TrimSpace(string(raw)))
	}

	var decoded searchResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode exa response: %w", err)
	}
	if decoded.Results == nil {
		decoded.Results = []Result{}
	}
	return decoded.Results, nil
}
