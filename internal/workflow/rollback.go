package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/yukyudata/deployops/internal/activity"
)

// RollbackParams holds parameters for RollbackWorkflow. An empty BackupPath
// restores the most recent pre-deploy artifact.
type RollbackParams struct {
	DeploymentID string `json:"deployment_id"`
	BackupPath   string `json:"backup_path,omitempty"`

	// Slot is the color that should serve once the rollback completes.
	// Empty means whatever the slot store currently marks active. A failed
	// deployment must name its pre-switch slot here: after the traffic
	// switch the store already points at the new color, so re-reading it
	// would restart the broken container instead of the previous one.
	Slot string `json:"slot,omitempty"`

	// RevertTraffic routes the proxy and the slot store back to Slot. Set
	// when the failed deployment had already switched traffic.
	RevertTraffic bool `json:"revert_traffic,omitempty"`

	AppHost             string        `json:"app_host"`
	HealthCheckRetries  int           `json:"health_check_retries"`
	HealthCheckInterval time.Duration `json:"health_check_interval"`
}

// RollbackResult holds the outcome of RollbackWorkflow.
type RollbackResult struct {
	RestoredPath string `json:"restored_path"`
	SnapshotPath string `json:"snapshot_path"`
}

// RollbackWorkflow restores the database from a backup artifact, restarts
// the previous slot, and, when the failed run had already switched traffic,
// routes the proxy back to it. It always snapshots the current broken state
// before touching the live database, and it never recurses: a failure here
// is terminal and requires manual intervention.
func RollbackWorkflow(ctx workflow.Context, p RollbackParams) (*RollbackResult, error) {
	logger := workflow.GetLogger(ctx)
	ctx = defaultActivityCtx(ctx)

	// Locate the artifact first: with no backup present the rollback fails
	// without mutating anything.
	var artifact activity.BackupResult
	err := workflow.ExecuteActivity(ctx, "ResolveBackup", activity.ResolveBackupParams{
		Path: p.BackupPath,
	}).Get(ctx, &artifact)
	if err != nil {
		return nil, fmt.Errorf("resolve backup: %w", err)
	}
	logger.Info("rolling back", "deployment_id", p.DeploymentID, "artifact", artifact.Path)

	// Snapshot the broken state before restoring. Snapshots are never
	// auto-deleted.
	var snapshot activity.BackupResult
	err = workflow.ExecuteActivity(ctx, "SnapshotBackup", activity.BackupParams{
		DeploymentID: p.DeploymentID,
	}).Get(ctx, &snapshot)
	if err != nil {
		return nil, fmt.Errorf("safety snapshot: %w", err)
	}

	err = workflow.ExecuteActivity(ctx, "RestoreBackup", activity.RestoreBackupParams{
		Path: artifact.Path,
	}).Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("restore backup: %w", err)
	}

	target := p.Slot
	if target == "" {
		var slots activity.GetActiveSlotResult
		err = workflow.ExecuteActivity(ctx, "GetActiveSlot").Get(ctx, &slots)
		if err != nil {
			return nil, fmt.Errorf("resolve slots: %w", err)
		}
		target = slots.Active
	}

	err = workflow.ExecuteActivity(ctx, "RestartSlot", activity.RestartSlotParams{
		NameOrID: slotName(target),
	}).Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("restart slot %s: %w", target, err)
	}

	longCtx := longActivityCtx(ctx)
	err = workflow.ExecuteActivity(longCtx, "WaitForHealthy", activity.WaitHealthyParams{
		URL:      slotURL(p.AppHost, target) + "/api/health",
		Attempts: p.HealthCheckRetries,
		Interval: p.HealthCheckInterval,
	}).Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("health check after restore: %w", err)
	}

	// Pull traffic off the broken slot only once the previous one answers
	// health checks again.
	if p.RevertTraffic {
		err = workflow.ExecuteActivity(ctx, "SwitchTraffic", activity.SwitchTrafficParams{
			Color: target,
		}).Get(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("revert traffic to %s: %w", target, err)
		}
		err = workflow.ExecuteActivity(ctx, "SetActiveSlot", activity.SetActiveSlotParams{
			Color: target,
		}).Get(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("revert active slot to %s: %w", target, err)
		}
	}

	// Trivial read through the restored database.
	err = workflow.ExecuteActivity(ctx, "VerifyIntegrity", activity.VerifyIntegrityParams{
		URL: slotURL(p.AppHost, target) + "/api/health/detailed",
	}).Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("integrity check: %w", err)
	}

	return &RollbackResult{
		RestoredPath: artifact.Path,
		SnapshotPath: snapshot.Path,
	}, nil
}
