// Package transcript detects YouTube video URLs and fetches caption
// transcripts for them.
package transcript

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://www.youtube.com/api/timedtext"
	chatPreview    = 2000
)

var (
	ErrNotYouTube   = errors.New("not a valid YouTube URL")
	ErrNoTranscript = errors.New("no transcript available")
)

var videoURLRE = regexp.MustCompile(`https?://(?:www\.)?(?:youtube\.com/watch\?v=|youtu\.be/)([a-zA-Z0-9_-]{11})`)

// IsYouTubeURL reports whether raw points at a single YouTube video.
func IsYouTubeURL(raw string) bool {
	return videoURLRE.MatchString(raw)
}

// VideoID returns the 11 character video id embedded in raw, or "".
func VideoID(raw string) string {
	match := videoURLRE.FindStringSubmatch(raw)
	if match == nil {
		return ""
	}
	return match[1]
}

type Transcript struct {
	VideoID  string
	URL      string
	Text     string
	Segments int
}

// ChatBlock renders the transcript for inclusion in a chat prompt, keeping
// the first 2000 characters.
func (t Transcript) ChatBlock() string {
	text := t.Text
	if runes := []rune(text); len(runes) > chatPreview {
		text = string(runes[:chatPreview]) + "..."
	}
	return fmt.Sprintf("\nYouTube Video Transcript (ID: %s):\n---\n%s\n---\n(Transcript length: %d chars, %d segments)\n",
		t.VideoID, text, len(t.Text), t.Segments)
}

type Fetcher interface {
	Fetch(ctx context.Context, videoURL string) (Transcript, error)
}

type TimedTextConfig struct {
	BaseURL  string
	Language string
	Client   *http.Client
}

// TimedTextFetcher reads caption tracks from the YouTube timedtext endpoint.
type TimedTextFetcher struct {
	baseURL  string
	language string
	client   *http.Client
}

func NewTimedTextFetcher(cfg TimedTextConfig) *TimedTextFetcher {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	language := cfg.Language
	if language == "" {
		language = "en"
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &TimedTextFetcher{baseURL: baseURL, language: language, client: client}
}

type timedText struct {
	Texts []string `xml:"text"`
}

func (f *TimedTextFetcher) Fetch(ctx context.Context, videoURL string) (Transcript, error) {
	id := VideoID(videoURL)
	if id == "" {
		return Transcript{}, ErrNotYouTube
	}
	query := url.Values{}
	query.Set("v", id)
	query.Set("lang", f.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return Transcript{}, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return Transcript{}, fmt.Errorf("fetch transcript: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Transcript{}, fmt.Errorf("read transcript: %w", err)
	}
	if resp.StatusCode >= 300 {
		return Transcript{}, fmt.Errorf("fetch transcript: status %d", resp.StatusCode)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return Transcript{}, ErrNoTranscript
	}

	var doc timedText
	if err := xml.Unmarshal(body, &doc); err != nil {
		return Transcript{}, fmt.Errorf("decode transcript: %w", err)
	}
	parts := make([]string, 0, len(doc.Texts))
	for _, text := range doc.Texts {
		text = strings.TrimSpace(html.UnescapeString(text))
		if text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return Transcript{}, ErrNoTranscript
	}
	return Transcript{
		VideoID:  id,
		URL:      videoURL,
		Text:     strings.Join(parts, " "),
		Segments: len(parts),
	}, nil
}
