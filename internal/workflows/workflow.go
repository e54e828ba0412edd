package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const SummarizePageActivity = "SummarizePage"

type SummarizePageInput struct {
	URL     string
	Content string
}

// SummarizePageWorkflow summarises one saved page. The activity is retried up
// to three times before the workflow fails.
func SummarizePageWorkflow(ctx workflow.Context, input SummarizePageInput) (string, error) {
	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	logger := workflow.GetLogger(ctx)
	var summary string
	if err := workflow.ExecuteActivity(ctx, SummarizePageActivity, input).Get(ctx, &summary); err != nil {
		logger.Error("page summary activity failed", "url", input.URL, "error", err)
		return "", err
	}
	return summary, nil
}
