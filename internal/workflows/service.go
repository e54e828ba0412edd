package workflows

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
)

const DefaultTaskQueue = "command-center-pages"

// Service runs page summaries as Temporal workflows. It satisfies
// memory.PageSummarizer so the memory store can use it directly.
type Service struct {
	client    client.Client
	taskQueue string
}

func NewService(client client.Client, taskQueue string) *Service {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	return &Service{client: client, taskQueue: taskQueue}
}

// SummarizePage starts a summary workflow and blocks until it completes.
func (s *Service) SummarizePage(ctx context.Context, url string, content string) (string, error) {
	options := client.StartWorkflowOptions{
		ID:        workflowID(uuid.NewString()),
		TaskQueue: s.taskQueue,
	}
	run, err := s.client.ExecuteWorkflow(ctx, options, SummarizePageWorkflow, SummarizePageInput{URL: url, Content: content})
	if err != nil {
		return "", fmt.Errorf("start page summary: %w", err)
	}
	var summary string
	if err := run.Get(ctx, &summary); err != nil {
		return "", fmt.Errorf("page summary workflow: %w", err)
	}
	return summary, nil
}

func workflowID(id string) string {
	return fmt.Sprintf("page-summary:%s", id)
}
