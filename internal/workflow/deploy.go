package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/yukyudata/deployops/internal/activity"
	"github.com/yukyudata/deployops/internal/model"
)

// Error-rate monitoring after the traffic switch: poll every 2 seconds for a
// fixed 30 second window and roll back on the first breach, not on the
// window average.
const (
	monitorWindow   = 30 * time.Second
	monitorInterval = 2 * time.Second
)

// DeployParams holds parameters for DeployWorkflow.
type DeployParams struct {
	DeploymentID string `json:"deployment_id"`
	Version      string `json:"version"`
	Image        string `json:"image"`
	Environment  string `json:"environment"`
	Strategy     string `json:"strategy"`
	SkipBackup   bool   `json:"skip_backup"`
	DryRun       bool   `json:"dry_run"`

	// Host-level wiring, filled from worker config by the caller.
	AppHost             string            `json:"app_host"`
	DockerNetwork       string            `json:"docker_network,omitempty"`
	Env                 map[string]string `json:"env,omitempty"`
	Volumes             []string          `json:"volumes,omitempty"`
	MigrateCommand      []string          `json:"migrate_command"`
	HealthCheckRetries  int               `json:"health_check_retries"`
	HealthCheckInterval time.Duration     `json:"health_check_interval"`
	DecommissionDelay   time.Duration     `json:"decommission_delay"`
}

// DeployResult holds the outcome of DeployWorkflow.
type DeployResult struct {
	Result     string `json:"result"`
	ActiveSlot string `json:"active_slot"`
	BackupPath string `json:"backup_path,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// DeployWorkflow runs one blue-green deployment: preflight, backup, start
// the idle slot, health check, migrate, smoke test, switch traffic, watch
// the error rate, then decommission the old slot. Any step failure after
// preflight hands off to RollbackWorkflow and the run terminates as
// result=rollback; a failed rollback terminates as result=failed and needs
// manual intervention.
func DeployWorkflow(ctx workflow.Context, p DeployParams) (*DeployResult, error) {
	logger := workflow.GetLogger(ctx)
	ctx = defaultActivityCtx(ctx)

	// Resolve the slot pair first: the record needs the target color.
	var slots activity.GetActiveSlotResult
	err := workflow.ExecuteActivity(ctx, "GetActiveSlot").Get(ctx, &slots)
	if err != nil {
		return nil, fmt.Errorf("resolve slots: %w", err)
	}
	oldSlot, newSlot := slots.Active, slots.Target
	logger.Info("starting deployment", "deployment_id", p.DeploymentID, "version", p.Version,
		"active_slot", oldSlot, "target_slot", newSlot)

	err = workflow.ExecuteActivity(ctx, "CreateDeploymentRecord", activity.CreateDeploymentParams{
		ID:          p.DeploymentID,
		Version:     p.Version,
		Environment: p.Environment,
		Strategy:    p.Strategy,
		TargetSlot:  newSlot,
		SkipBackup:  p.SkipBackup,
		DryRun:      p.DryRun,
	}).Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create deployment record: %w", err)
	}

	// Preflight failures are fatal and abort before any mutation; there is
	// nothing to roll back yet.
	err = workflow.ExecuteActivity(ctx, "RunPreflight", activity.RunPreflightParams{
		Image: p.Image,
	}).Get(ctx, nil)
	if err != nil {
		completeDeployment(ctx, p, model.ResultFailed, fmt.Sprintf("preflight failed: %v", err))
		return nil, fmt.Errorf("preflight: %w", err)
	}

	if p.DryRun {
		detail := fmt.Sprintf("dry run: would deploy %s to %s slot", p.Version, newSlot)
		completeDeployment(ctx, p, model.ResultSuccess, detail)
		return &DeployResult{Result: model.ResultSuccess, ActiveSlot: oldSlot, Detail: detail}, nil
	}

	// backup
	var backupPath string
	if !p.SkipBackup {
		recordPhase(ctx, p.DeploymentID, model.PhaseBackup)
		var backupRes activity.BackupResult
		err = workflow.ExecuteActivity(ctx, "CreateBackup", activity.BackupParams{
			DeploymentID: p.DeploymentID,
		}).Get(ctx, &backupRes)
		if err != nil {
			return failToRollback(ctx, p, "", oldSlot, false, fmt.Errorf("backup: %w", err))
		}
		backupPath = backupRes.Path

		err = workflow.ExecuteActivity(ctx, "SetDeploymentBackupPath", activity.SetBackupPathParams{
			DeploymentID: p.DeploymentID,
			BackupPath:   backupPath,
		}).Get(ctx, nil)
		if err != nil {
			logger.Warn("failed to record backup path", "error", err)
		}

		// Offsite upload failure must not block the deployment.
		err = workflow.ExecuteActivity(ctx, "UploadBackupOffsite", activity.UploadBackupParams{
			Path: backupPath,
		}).Get(ctx, nil)
		if err != nil {
			logger.Warn("offsite backup upload failed", "path", backupPath, "error", err)
		}
	}

	// build & start
	recordPhase(ctx, p.DeploymentID, model.PhaseBuildStart)
	longCtx := longActivityCtx(ctx)
	err = workflow.ExecuteActivity(longCtx, "PullImage", activity.PullImageParams{
		Image: p.Image,
	}).Get(ctx, nil)
	if err != nil {
		return failToRollback(ctx, p, backupPath, oldSlot, false, fmt.Errorf("pull image: %w", err))
	}

	// The idle slot may hold a stopped container from a previous run.
	_ = workflow.ExecuteActivity(ctx, "StopContainer", activity.ContainerParams{NameOrID: slotName(newSlot)}).Get(ctx, nil)
	_ = workflow.ExecuteActivity(ctx, "RemoveContainer", activity.ContainerParams{NameOrID: slotName(newSlot)}).Get(ctx, nil)

	err = workflow.ExecuteActivity(ctx, "StartSlot", activity.StartSlotParams{
		Name:     slotName(newSlot),
		Image:    p.Image,
		Env:      p.Env,
		Volumes:  p.Volumes,
		HostPort: model.SlotPort(model.Color(newSlot)),
		AppPort:  8000,
		Network:  p.DockerNetwork,
	}).Get(ctx, nil)
	if err != nil {
		return failToRollback(ctx, p, backupPath, oldSlot, false, fmt.Errorf("start slot %s: %w", newSlot, err))
	}

	// health_check
	recordPhase(ctx, p.DeploymentID, model.PhaseHealthCheck)
	err = workflow.ExecuteActivity(longCtx, "WaitForHealthy", activity.WaitHealthyParams{
		URL:      slotURL(p.AppHost, newSlot) + "/api/health",
		Attempts: p.HealthCheckRetries,
		Interval: p.HealthCheckInterval,
	}).Get(ctx, nil)
	if err != nil {
		return failToRollback(ctx, p, backupPath, oldSlot, false, fmt.Errorf("health check: %w", err))
	}

	// migrate
	recordPhase(ctx, p.DeploymentID, model.PhaseMigrate)
	err = workflow.ExecuteActivity(ctx, "RunAppMigrations", activity.RunAppMigrationsParams{
		Container: slotName(newSlot),
		Command:   p.MigrateCommand,
	}).Get(ctx, nil)
	if err != nil {
		return failToRollback(ctx, p, backupPath, oldSlot, false, fmt.Errorf("migrate: %w", err))
	}

	// smoke_test
	recordPhase(ctx, p.DeploymentID, model.PhaseSmokeTest)
	var smokeRes activity.RunSmokeTestsResult
	err = workflow.ExecuteActivity(ctx, "RunSmokeTests", activity.RunSmokeTestsParams{
		Host: slotURL(p.AppHost, newSlot),
	}).Get(ctx, &smokeRes)
	if err != nil {
		return failToRollback(ctx, p, backupPath, oldSlot, false, fmt.Errorf("smoke tests: %w", err))
	}
	if !smokeRes.OK {
		return failToRollback(ctx, p, backupPath, oldSlot, false,
			fmt.Errorf("smoke tests failed: %d of %d checks", smokeRes.Failed, smokeRes.Passed+smokeRes.Failed))
	}

	// switch_traffic. A failed switch may still have applied the new
	// upstream config, so from here on every rollback also reverts traffic.
	recordPhase(ctx, p.DeploymentID, model.PhaseSwitch)
	err = workflow.ExecuteActivity(ctx, "SwitchTraffic", activity.SwitchTrafficParams{
		Color: newSlot,
	}).Get(ctx, nil)
	if err != nil {
		return failToRollback(ctx, p, backupPath, oldSlot, true, fmt.Errorf("switch traffic: %w", err))
	}
	err = workflow.ExecuteActivity(ctx, "SetActiveSlot", activity.SetActiveSlotParams{
		Color: newSlot,
	}).Get(ctx, nil)
	if err != nil {
		return failToRollback(ctx, p, backupPath, oldSlot, true, fmt.Errorf("set active slot: %w", err))
	}

	// monitor_error_rate
	recordPhase(ctx, p.DeploymentID, model.PhaseMonitor)
	deadline := workflow.Now(ctx).Add(monitorWindow)
	for workflow.Now(ctx).Before(deadline) {
		var metrics activity.GetMetricsResult
		err = workflow.ExecuteActivity(ctx, "GetMetrics").Get(ctx, &metrics)
		if err != nil {
			return failToRollback(ctx, p, backupPath, oldSlot, true, fmt.Errorf("fetch metrics: %w", err))
		}
		if metrics.ErrorRatePercent > model.MaxErrorRatePercent {
			return failToRollback(ctx, p, backupPath, oldSlot, true,
				fmt.Errorf("error rate %.2f%% exceeds %.2f%%", metrics.ErrorRatePercent, model.MaxErrorRatePercent))
		}
		if err := workflow.Sleep(ctx, monitorInterval); err != nil {
			return nil, err
		}
	}

	// The deployment is live; record the result before the decommission
	// delay so operators see the outcome immediately.
	completeDeployment(ctx, p, model.ResultSuccess, fmt.Sprintf("version %s live on %s slot", p.Version, newSlot))

	// decommission_old: supervised replacement for the legacy detached
	// cleanup subshell. A failure here leaves a stale container behind; it
	// never un-deploys a live release.
	recordPhase(ctx, p.DeploymentID, model.PhaseDecommission)
	if err := workflow.Sleep(ctx, p.DecommissionDelay); err != nil {
		return nil, err
	}
	err = workflow.ExecuteActivity(ctx, "StopContainer", activity.ContainerParams{
		NameOrID: slotName(oldSlot),
	}).Get(ctx, nil)
	if err != nil {
		logger.Warn("failed to stop old slot", "slot", oldSlot, "error", err)
	} else {
		err = workflow.ExecuteActivity(ctx, "RemoveContainer", activity.ContainerParams{
			NameOrID: slotName(oldSlot),
		}).Get(ctx, nil)
		if err != nil {
			logger.Warn("failed to remove old slot", "slot", oldSlot, "error", err)
		}
	}
	recordPhase(ctx, p.DeploymentID, model.PhaseDone)

	return &DeployResult{
		Result:     model.ResultSuccess,
		ActiveSlot: newSlot,
		BackupPath: backupPath,
	}, nil
}

// failToRollback is the single failure transition of the deployment state
// machine: hand off to RollbackWorkflow, then terminate the run as rollback
// or, if the rollback itself failed, as failed. switched is true once the
// traffic switch has begun; the rollback then also reverts the proxy and
// the slot store to oldSlot.
func failToRollback(ctx workflow.Context, p DeployParams, backupPath, oldSlot string, switched bool, stepErr error) (*DeployResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Error("deployment step failed, rolling back", "deployment_id", p.DeploymentID, "error", stepErr)

	recordPhase(ctx, p.DeploymentID, model.PhaseRollback)

	childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID: p.DeploymentID + "-rollback",
	})
	var rbRes RollbackResult
	rbErr := workflow.ExecuteChildWorkflow(childCtx, RollbackWorkflow, RollbackParams{
		DeploymentID:        p.DeploymentID,
		BackupPath:          backupPath,
		Slot:                oldSlot,
		RevertTraffic:       switched,
		AppHost:             p.AppHost,
		HealthCheckRetries:  p.HealthCheckRetries,
		HealthCheckInterval: p.HealthCheckInterval,
	}).Get(ctx, &rbRes)
	if rbErr != nil {
		detail := fmt.Sprintf("%v; rollback also failed: %v (manual intervention required)", stepErr, rbErr)
		completeDeployment(ctx, p, model.ResultFailed, detail)
		return nil, fmt.Errorf("deployment failed and rollback failed: %v: %w", rbErr, stepErr)
	}

	completeDeployment(ctx, p, model.ResultRollback, stepErr.Error())
	return &DeployResult{
		Result:     model.ResultRollback,
		ActiveSlot: oldSlot,
		BackupPath: backupPath,
		Detail:     stepErr.Error(),
	}, nil
}
