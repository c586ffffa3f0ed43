package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"

	"github.com/yukyudata/deployops/internal/activity"
)

// ---------- RollbackWorkflow ----------

type RollbackWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *RollbackWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	registerActivities(s.env)
}

func (s *RollbackWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func rollbackTestParams() RollbackParams {
	return RollbackParams{
		DeploymentID:       "deploy-20250101-120000",
		AppHost:            "127.0.0.1",
		HealthCheckRetries: 10,
	}
}

func (s *RollbackWorkflowTestSuite) TestLatestBackup_Success() {
	// Empty BackupPath resolves most-recent-by-mtime.
	s.env.OnActivity("ResolveBackup", mock.Anything, activity.ResolveBackupParams{Path: ""}).
		Return(&activity.BackupResult{Path: "/var/backups/yukyudata/yukyudata_backup_20250101_110000.db"}, nil)
	s.env.OnActivity("SnapshotBackup", mock.Anything, activity.BackupParams{DeploymentID: "deploy-20250101-120000"}).
		Return(&activity.BackupResult{Path: "/var/backups/yukyudata/pre_rollback_20250101_121500.db"}, nil)
	s.env.OnActivity("RestoreBackup", mock.Anything, activity.RestoreBackupParams{
		Path: "/var/backups/yukyudata/yukyudata_backup_20250101_110000.db",
	}).Return(nil)
	s.env.OnActivity("GetActiveSlot", mock.Anything).
		Return(&activity.GetActiveSlotResult{Active: "blue", Target: "green"}, nil)
	s.env.OnActivity("RestartSlot", mock.Anything, activity.RestartSlotParams{NameOrID: "yukyudata-blue"}).Return(nil)
	s.env.OnActivity("WaitForHealthy", mock.Anything, mock.MatchedBy(func(p activity.WaitHealthyParams) bool {
		return p.URL == "http://127.0.0.1:8000/api/health" && p.Attempts == 10
	})).Return(nil)
	s.env.OnActivity("VerifyIntegrity", mock.Anything, activity.VerifyIntegrityParams{
		URL: "http://127.0.0.1:8000/api/health/detailed",
	}).Return(nil)

	s.env.ExecuteWorkflow(RollbackWorkflow, rollbackTestParams())
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	var result RollbackResult
	s.NoError(s.env.GetWorkflowResult(&result))
	s.Equal("/var/backups/yukyudata/yukyudata_backup_20250101_110000.db", result.RestoredPath)
	s.Equal("/var/backups/yukyudata/pre_rollback_20250101_121500.db", result.SnapshotPath)
}

func (s *RollbackWorkflowTestSuite) TestExactDeploymentID_UsesGivenArtifact() {
	params := rollbackTestParams()
	params.BackupPath = "/var/backups/yukyudata/yukyudata_backup_20241230_080000.db"

	s.env.OnActivity("ResolveBackup", mock.Anything, activity.ResolveBackupParams{Path: params.BackupPath}).
		Return(&activity.BackupResult{Path: params.BackupPath}, nil)
	s.env.OnActivity("SnapshotBackup", mock.Anything, mock.Anything).
		Return(&activity.BackupResult{Path: "/var/backups/yukyudata/pre_rollback_20250101_121500.db"}, nil)
	s.env.OnActivity("RestoreBackup", mock.Anything, activity.RestoreBackupParams{Path: params.BackupPath}).Return(nil)
	s.env.OnActivity("GetActiveSlot", mock.Anything).
		Return(&activity.GetActiveSlotResult{Active: "green", Target: "blue"}, nil)
	s.env.OnActivity("RestartSlot", mock.Anything, activity.RestartSlotParams{NameOrID: "yukyudata-green"}).Return(nil)
	s.env.OnActivity("WaitForHealthy", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("VerifyIntegrity", mock.Anything, mock.Anything).Return(nil)

	s.env.ExecuteWorkflow(RollbackWorkflow, params)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

// With no backup present the rollback fails before any mutation:
// SnapshotBackup and RestoreBackup must never run.
func (s *RollbackWorkflowTestSuite) TestNoBackup_FailsWithoutMutation() {
	s.env.OnActivity("ResolveBackup", mock.Anything, mock.Anything).
		Return(nil, errors.New("no backup available"))

	s.env.ExecuteWorkflow(RollbackWorkflow, rollbackTestParams())
	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

// The safety snapshot happens before the restore, so a failed restore still
// leaves the snapshot on disk.
func (s *RollbackWorkflowTestSuite) TestRestoreFailure_SnapshotAlreadyTaken() {
	snapshotTaken := false
	s.env.OnActivity("ResolveBackup", mock.Anything, mock.Anything).
		Return(&activity.BackupResult{Path: "/var/backups/yukyudata/yukyudata_backup_20250101_110000.db"}, nil)
	s.env.OnActivity("SnapshotBackup", mock.Anything, mock.Anything).
		Return(&activity.BackupResult{Path: "/var/backups/yukyudata/pre_rollback_20250101_121500.db"}, nil).
		Run(func(args mock.Arguments) { snapshotTaken = true })
	s.env.OnActivity("RestoreBackup", mock.Anything, mock.Anything).
		Return(errors.New("disk full"))

	s.env.ExecuteWorkflow(RollbackWorkflow, rollbackTestParams())
	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
	s.True(snapshotTaken)
}

// A rollback never recurses: a health check failure after restore is
// terminal, with no second restore attempt.
func (s *RollbackWorkflowTestSuite) TestHealthFailureAfterRestore_Terminal() {
	s.env.OnActivity("ResolveBackup", mock.Anything, mock.Anything).
		Return(&activity.BackupResult{Path: "/var/backups/yukyudata/yukyudata_backup_20250101_110000.db"}, nil)
	s.env.OnActivity("SnapshotBackup", mock.Anything, mock.Anything).
		Return(&activity.BackupResult{Path: "/var/backups/yukyudata/pre_rollback_20250101_121500.db"}, nil)
	s.env.OnActivity("RestoreBackup", mock.Anything, mock.Anything).Return(nil).Once()
	s.env.OnActivity("GetActiveSlot", mock.Anything).
		Return(&activity.GetActiveSlotResult{Active: "blue", Target: "green"}, nil)
	s.env.OnActivity("RestartSlot", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("WaitForHealthy", mock.Anything, mock.Anything).
		Return(errors.New("app not healthy after 10 attempts"))

	s.env.ExecuteWorkflow(RollbackWorkflow, rollbackTestParams())
	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

// After a post-switch failure the slot store already names the new color,
// so the rollback must restart the slot it was given and route traffic back
// to it. GetActiveSlot is deliberately not mocked: re-reading the store here
// would restart the broken container.
func (s *RollbackWorkflowTestSuite) TestPostSwitchFailure_RevertsTrafficToPreviousSlot() {
	params := rollbackTestParams()
	params.Slot = "blue"
	params.RevertTraffic = true

	s.env.OnActivity("ResolveBackup", mock.Anything, mock.Anything).
		Return(&activity.BackupResult{Path: "/var/backups/yukyudata/yukyudata_backup_20250101_110000.db"}, nil)
	s.env.OnActivity("SnapshotBackup", mock.Anything, mock.Anything).
		Return(&activity.BackupResult{Path: "/var/backups/yukyudata/pre_rollback_20250101_121500.db"}, nil)
	s.env.OnActivity("RestoreBackup", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("RestartSlot", mock.Anything, activity.RestartSlotParams{NameOrID: "yukyudata-blue"}).Return(nil)
	s.env.OnActivity("WaitForHealthy", mock.Anything, mock.MatchedBy(func(p activity.WaitHealthyParams) bool {
		return p.URL == "http://127.0.0.1:8000/api/health"
	})).Return(nil)
	s.env.OnActivity("SwitchTraffic", mock.Anything, activity.SwitchTrafficParams{Color: "blue"}).Return(nil)
	s.env.OnActivity("SetActiveSlot", mock.Anything, activity.SetActiveSlotParams{Color: "blue"}).Return(nil)
	s.env.OnActivity("VerifyIntegrity", mock.Anything, mock.Anything).Return(nil)

	s.env.ExecuteWorkflow(RollbackWorkflow, params)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

// A revert failure is terminal: the run errors instead of reporting a clean
// rollback while the broken slot still serves traffic.
func (s *RollbackWorkflowTestSuite) TestRevertTrafficFailure_Terminal() {
	params := rollbackTestParams()
	params.Slot = "blue"
	params.RevertTraffic = true

	s.env.OnActivity("ResolveBackup", mock.Anything, mock.Anything).
		Return(&activity.BackupResult{Path: "/var/backups/yukyudata/yukyudata_backup_20250101_110000.db"}, nil)
	s.env.OnActivity("SnapshotBackup", mock.Anything, mock.Anything).
		Return(&activity.BackupResult{Path: "/var/backups/yukyudata/pre_rollback_20250101_121500.db"}, nil)
	s.env.OnActivity("RestoreBackup", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("RestartSlot", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("WaitForHealthy", mock.Anything, mock.Anything).Return(nil)
	s.env.OnActivity("SwitchTraffic", mock.Anything, activity.SwitchTrafficParams{Color: "blue"}).
		Return(errors.New("reload proxy yukyudata-proxy: exit 1"))

	s.env.ExecuteWorkflow(RollbackWorkflow, params)
	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

func TestRollbackWorkflowTestSuite(t *testing.T) {
	suite.Run(t, new(RollbackWorkflowTestSuite))
}
