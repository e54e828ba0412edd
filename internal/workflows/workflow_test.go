package workflows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/activity"
	tests "go.temporal.io/sdk/testsuite"
)

type WorkflowTestSuite struct {
	suite.Suite
	testSuite *tests.WorkflowTestSuite
	env       *tests.TestWorkflowEnvironment
}

func (s *WorkflowTestSuite) SetupTest() {
	s.testSuite = &tests.WorkflowTestSuite{}
	s.env = s.testSuite.NewTestWorkflowEnvironment()
	s.env.RegisterWorkflow(SummarizePageWorkflow)
	s.env.RegisterActivityWithOptions(func(ctx context.Context, input SummarizePageInput) (string, error) {
		return "", nil
	}, activity.RegisterOptions{Name: SummarizePageActivity})
}

func (s *WorkflowTestSuite) TearDownTest() {
	s.env.AssertExpectations(s.T())
}

func (s *WorkflowTestSuite) TestSummarizePageWorkflow_Success() {
	input := SummarizePageInput{URL: "https://go.dev", Content: "Go"}
	s.env.OnActivity(SummarizePageActivity, mock.Anything, input).Return("Go summary", nil).Once()

	s.env.ExecuteWorkflow(SummarizePageWorkflow, input)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	var summary string
	s.NoError(s.env.GetWorkflowResult(&summary))
	s.Equal("Go summary", summary)
}

func (s *WorkflowTestSuite) TestSummarizePageWorkflow_RetriesThenSucceeds() {
	input := SummarizePageInput{URL: "https://go.dev", Content: "Go"}
	s.env.OnActivity(SummarizePageActivity, mock.Anything, input).Return("", errors.New("flaky")).Twice()
	s.env.OnActivity(SummarizePageActivity, mock.Anything, input).Return("third time", nil).Once()

	s.env.ExecuteWorkflow(SummarizePageWorkflow, input)
	s.True(s.env.IsWorkflowCompleted())

	var summary string
	s.NoError(s.env.GetWorkflowResult(&summary))
	s.Equal("third time", summary)
}

func (s *WorkflowTestSuite) TestSummarizePageWorkflow_FailsAfterThreeAttempts() {
	input := SummarizePageInput{URL: "https://go.dev", Content: "Go"}
	s.env.OnActivity(SummarizePageActivity, mock.Anything, input).Return("", errors.New("llm down")).Times(3)

	s.env.ExecuteWorkflow(SummarizePageWorkflow, input)
	s.True(s.env.IsWorkflowCompleted())

	err := s.env.GetWorkflowError()
	s.Error(err)
	s.Contains(err.Error(), "llm down")
}

func TestWorkflowTestSuite(t *testing.T) {
	suite.Run(t, new(WorkflowTestSuite))
}

type stubSummarizer struct {
	summary string
	err     error
}

func (s stubSummarizer) SummarizePage(ctx context.Context, url string, content string) (string, error) {
	return s.summary, s.err
}

func TestPageActivities_SummarizePage(t *testing.T) {
	var ts tests.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	activities := NewPageActivities(stubSummarizer{summary: "  trimmed  "})
	env.RegisterActivity(activities)

	value, err := env.ExecuteActivity(activities.SummarizePage, SummarizePageInput{URL: "u", Content: "c"})
	require.NoError(t, err)
	var summary string
	require.NoError(t, value.Get(&summary))
	require.Equal(t, "trimmed", summary)
}

func TestPageActivities_Errors(t *testing.T) {
	var ts tests.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()

	failing := NewPageActivities(stubSummarizer{err: errors.New("quota")})
	env.RegisterActivity(failing)
	_, err := env.ExecuteActivity(failing.SummarizePage, SummarizePageInput{URL: "u", Content: "c"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "quota")

	_, err = NewPageActivities(nil).SummarizePage(context.Background(), SummarizePageInput{})
	require.EqualError(t, err, "page summarizer is not configured")
}
