package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/yukyudata/deployops/internal/activity"
	"github.com/yukyudata/deployops/internal/model"
)

// CanaryDeployParams holds parameters for CanaryDeployWorkflow.
type CanaryDeployParams struct {
	DeploymentID string `json:"deployment_id"`
	Version      string `json:"version"`
	Image        string `json:"image"`
	Environment  string `json:"environment"`

	AppHost             string            `json:"app_host"`
	DockerNetwork       string            `json:"docker_network,omitempty"`
	Env                 map[string]string `json:"env,omitempty"`
	Volumes             []string          `json:"volumes,omitempty"`
	HealthCheckRetries  int               `json:"health_check_retries"`
	HealthCheckInterval time.Duration     `json:"health_check_interval"`
	DecommissionDelay   time.Duration     `json:"decommission_delay"`
}

// CanaryResult holds the outcome of CanaryDeployWorkflow.
type CanaryResult struct {
	Result       string `json:"result"`
	ActiveSlot   string `json:"active_slot"`
	AbortedAtPct int    `json:"aborted_at_pct,omitempty"`
	Detail       string `json:"detail,omitempty"`
}

// CanaryDeployWorkflow shifts traffic to a new version in fixed steps
// (10%, 25%, 50%, 100%), watching error rate and p95 latency after each
// step's wait window. A threshold breach reverts the canary weight to 0 and
// aborts; that is a traffic-level rollback only, never a database restore. The
// 100% step is terminal with no wait or check.
func CanaryDeployWorkflow(ctx workflow.Context, p CanaryDeployParams) (*CanaryResult, error) {
	logger := workflow.GetLogger(ctx)
	ctx = defaultActivityCtx(ctx)

	var slots activity.GetActiveSlotResult
	err := workflow.ExecuteActivity(ctx, "GetActiveSlot").Get(ctx, &slots)
	if err != nil {
		return nil, fmt.Errorf("resolve slots: %w", err)
	}
	stable, canary := slots.Active, slots.Target
	logger.Info("starting canary rollout", "deployment_id", p.DeploymentID, "version", p.Version,
		"stable_slot", stable, "canary_slot", canary)

	deployParams := DeployParams{
		DeploymentID: p.DeploymentID,
		Version:      p.Version,
		Environment:  p.Environment,
		Strategy:     model.StrategyCanary,
	}

	err = workflow.ExecuteActivity(ctx, "CreateDeploymentRecord", activity.CreateDeploymentParams{
		ID:          p.DeploymentID,
		Version:     p.Version,
		Environment: p.Environment,
		Strategy:    model.StrategyCanary,
		TargetSlot:  canary,
	}).Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create deployment record: %w", err)
	}

	err = workflow.ExecuteActivity(ctx, "RunPreflight", activity.RunPreflightParams{
		Image: p.Image,
	}).Get(ctx, nil)
	if err != nil {
		completeDeployment(ctx, deployParams, model.ResultFailed, fmt.Sprintf("preflight failed: %v", err))
		return nil, fmt.Errorf("preflight: %w", err)
	}

	// Bring the canary slot up before any traffic reaches it.
	recordPhase(ctx, p.DeploymentID, model.PhaseBuildStart)
	longCtx := longActivityCtx(ctx)
	err = workflow.ExecuteActivity(longCtx, "PullImage", activity.PullImageParams{
		Image: p.Image,
	}).Get(ctx, nil)
	if err != nil {
		completeDeployment(ctx, deployParams, model.ResultFailed, fmt.Sprintf("pull image: %v", err))
		return nil, fmt.Errorf("pull image: %w", err)
	}

	_ = workflow.ExecuteActivity(ctx, "StopContainer", activity.ContainerParams{NameOrID: slotName(canary)}).Get(ctx, nil)
	_ = workflow.ExecuteActivity(ctx, "RemoveContainer", activity.ContainerParams{NameOrID: slotName(canary)}).Get(ctx, nil)

	err = workflow.ExecuteActivity(ctx, "StartSlot", activity.StartSlotParams{
		Name:     slotName(canary),
		Image:    p.Image,
		Env:      p.Env,
		Volumes:  p.Volumes,
		HostPort: model.SlotPort(model.Color(canary)),
		AppPort:  8000,
		Network:  p.DockerNetwork,
	}).Get(ctx, nil)
	if err != nil {
		completeDeployment(ctx, deployParams, model.ResultFailed, fmt.Sprintf("start canary slot: %v", err))
		return nil, fmt.Errorf("start canary slot: %w", err)
	}

	recordPhase(ctx, p.DeploymentID, model.PhaseHealthCheck)
	err = workflow.ExecuteActivity(longCtx, "WaitForHealthy", activity.WaitHealthyParams{
		URL:      slotURL(p.AppHost, canary) + "/api/health",
		Attempts: p.HealthCheckRetries,
		Interval: p.HealthCheckInterval,
	}).Get(ctx, nil)
	if err != nil {
		completeDeployment(ctx, deployParams, model.ResultFailed, fmt.Sprintf("canary health check: %v", err))
		return nil, fmt.Errorf("canary health check: %w", err)
	}

	for _, phase := range model.CanaryPhases {
		recordPhase(ctx, p.DeploymentID, fmt.Sprintf("canary_%d", phase.Percentage))
		logger.Info("advancing canary", "deployment_id", p.DeploymentID, "percent", phase.Percentage)

		err = workflow.ExecuteActivity(ctx, "SetCanaryWeight", activity.SetCanaryWeightParams{
			Active:  stable,
			Canary:  canary,
			Percent: phase.Percentage,
		}).Get(ctx, nil)
		if err != nil {
			return abortCanary(ctx, deployParams, stable, canary, phase.Percentage,
				fmt.Errorf("set canary weight %d%%: %w", phase.Percentage, err))
		}

		// 100% is terminal: promote with no wait or metrics check.
		if phase.Percentage == 100 {
			break
		}

		if err := workflow.Sleep(ctx, phase.Wait); err != nil {
			return nil, err
		}

		var metrics activity.GetMetricsResult
		err = workflow.ExecuteActivity(ctx, "GetMetrics").Get(ctx, &metrics)
		if err != nil {
			return abortCanary(ctx, deployParams, stable, canary, phase.Percentage,
				fmt.Errorf("fetch metrics: %w", err))
		}
		sample := model.HealthSample{
			ErrorRatePercent: metrics.ErrorRatePercent,
			LatencyP95Ms:     metrics.LatencyP95Ms,
		}
		if sample.Breached() {
			return abortCanary(ctx, deployParams, stable, canary, phase.Percentage,
				fmt.Errorf("thresholds breached at %d%%: error_rate=%.2f%% p95=%.0fms",
					phase.Percentage, metrics.ErrorRatePercent, metrics.LatencyP95Ms))
		}
	}

	err = workflow.ExecuteActivity(ctx, "SetActiveSlot", activity.SetActiveSlotParams{
		Color: canary,
	}).Get(ctx, nil)
	if err != nil {
		return abortCanary(ctx, deployParams, stable, canary, 100, fmt.Errorf("set active slot: %w", err))
	}

	completeDeployment(ctx, deployParams, model.ResultSuccess,
		fmt.Sprintf("canary %s promoted to %s slot", p.Version, canary))

	// Old slot retention mirrors the blue-green decommission window.
	recordPhase(ctx, p.DeploymentID, model.PhaseDecommission)
	if err := workflow.Sleep(ctx, p.DecommissionDelay); err != nil {
		return nil, err
	}
	if err := workflow.ExecuteActivity(ctx, "StopContainer", activity.ContainerParams{
		NameOrID: slotName(stable),
	}).Get(ctx, nil); err != nil {
		logger.Warn("failed to stop old slot", "slot", stable, "error", err)
	} else if err := workflow.ExecuteActivity(ctx, "RemoveContainer", activity.ContainerParams{
		NameOrID: slotName(stable),
	}).Get(ctx, nil); err != nil {
		logger.Warn("failed to remove old slot", "slot", stable, "error", err)
	}
	recordPhase(ctx, p.DeploymentID, model.PhaseDone)

	return &CanaryResult{Result: model.ResultSuccess, ActiveSlot: canary}, nil
}

// abortCanary reverts all traffic to the stable slot and terminates the run
// as rollback. The canary container is left in place for inspection; the
// revert is a weight change only.
func abortCanary(ctx workflow.Context, p DeployParams, stable, canary string, pct int, stepErr error) (*CanaryResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Error("canary aborted, reverting traffic", "deployment_id", p.DeploymentID, "percent", pct, "error", stepErr)

	recordPhase(ctx, p.DeploymentID, model.PhaseRollback)
	err := workflow.ExecuteActivity(ctx, "SetCanaryWeight", activity.SetCanaryWeightParams{
		Active:  stable,
		Canary:  canary,
		Percent: 0,
	}).Get(ctx, nil)
	if err != nil {
		detail := fmt.Sprintf("%v; traffic revert also failed: %v (manual intervention required)", stepErr, err)
		completeDeployment(ctx, p, model.ResultFailed, detail)
		return nil, fmt.Errorf("canary abort failed to revert traffic: %v: %w", err, stepErr)
	}

	completeDeployment(ctx, p, model.ResultRollback, stepErr.Error())
	return &CanaryResult{
		Result:       model.ResultRollback,
		ActiveSlot:   stable,
		AbortedAtPct: pct,
		Detail:       stepErr.Error(),
	}, nil
}
