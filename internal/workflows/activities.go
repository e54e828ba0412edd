package workflows

import (
	"context"
	"errors"
	"strings"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/memory"
)

type PageActivities struct {
	summarizer memory.PageSummarizer
}

func NewPageActivities(summarizer memory.PageSummarizer) *PageActivities {
	return &PageActivities{summarizer: summarizer}
}

func (a *PageActivities) SummarizePage(ctx context.Context, input SummarizePageInput) (string, error) {
	if a.summarizer == nil {
		return "", errors.New("page summarizer is not configured")
	}
	summary, err := a.summarizer.SummarizePage(ctx, input.URL, input.Content)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(summary), nil
}
