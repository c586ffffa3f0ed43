package workflow

import (
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"

	"github.com/yukyudata/deployops/internal/activity"
)

type CleanupWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *CleanupWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	registerActivities(s.env)
}

func (s *CleanupWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func (s *CleanupWorkflowTestSuite) TestCleanup() {
	s.env.OnActivity("CleanupOldBackups", mock.Anything, activity.CleanupBackupsParams{RetentionDays: 30}).
		Return(&activity.CleanupBackupsResult{Removed: 4}, nil)

	s.env.ExecuteWorkflow(CleanupOldBackupsWorkflow, 30)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func TestCleanupWorkflowTestSuite(t *testing.T) {
	suite.Run(t, new(CleanupWorkflowTestSuite))
}
