package store

import (
	"context"
	"errors"
)

const (
	TypeWebpage           = "webpage"
	TypeWebpageScreenshot = "webpage_screenshot"
)

// ErrCorrupt is returned by Load when persisted data exists but cannot be
// decoded. Callers may recover by treating the collection as empty.
var ErrCorrupt = errors.New("memory data is corrupt")

// Memory is a durable user-saved record. Records are never updated in place;
// Type, URL and Title are set only for page-derived memories.
type Memory struct {
	ID                     string `json:"id"`
	Content                string `json:"content"`
	Timestamp              string `json:"timestamp"`
	CreatedAt              string `json:"created_at"`
	Type                   string `json:"type,omitempty"`
	URL                    string `json:"url,omitempty"`
	Title                  string `json:"title,omitempty"`
	OriginalContentPreview string `json:"original_content_preview,omitempty"`
	HasScreenshot          bool   `json:"has_screenshot,omitempty"`
}

// Repository persists the whole memory collection. Save replaces everything
// previously stored, preserving slice order for the next Load.
type Repository interface {
	Load(ctx context.Context) ([]Memory, error)
	Save(ctx context.Context, memories []Memory) error
}

// Pinger is implemented by repositories backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}
