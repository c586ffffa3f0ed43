package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/yukyudata/deployops/internal/activity"
)

// CleanupOldBackupsWorkflow deletes pre-deploy backup artifacts older than
// the retention window. It runs on a cron schedule; pre-rollback safety
// snapshots are never touched.
func CleanupOldBackupsWorkflow(ctx workflow.Context, retentionDays int) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var result activity.CleanupBackupsResult
	err := workflow.ExecuteActivity(ctx, "CleanupOldBackups", activity.CleanupBackupsParams{
		RetentionDays: retentionDays,
	}).Get(ctx, &result)
	if err != nil {
		return err
	}

	workflow.GetLogger(ctx).Info("backup cleanup finished", "removed", result.Removed, "retention_days", retentionDays)
	return nil
}
