// Package workflow implements the Temporal workflows that drive blue-green
// deployments, canary rollouts, rollbacks, and backup housekeeping.
package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/yukyudata/deployops/internal/activity"
	"github.com/yukyudata/deployops/internal/model"
)

// defaultActivityCtx applies the standard activity options for deployment
// steps. Non-retryable application errors bypass the retry policy.
func defaultActivityCtx(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    1 * time.Second,
			MaximumInterval:    10 * time.Second,
			BackoffCoefficient: 2.0,
		},
	})
}

// longActivityCtx is for activities that legitimately run for minutes, like
// WaitForHealthy and image pulls. They get one attempt: the waiting happens
// inside the activity.
func longActivityCtx(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Minute,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})
}

// slotName is the container name for a color.
func slotName(c string) string {
	return "yukyudata-" + c
}

// slotURL is the direct (proxy-bypassing) base URL for a slot.
func slotURL(host, color string) string {
	port := model.SlotPort(model.Color(color))
	return fmt.Sprintf("http://%s:%d", host, port)
}

// recordPhase persists the phase a deployment has entered. Recording is
// best-effort: the workflow history is the source of truth and a write
// failure must not fail the deployment.
func recordPhase(ctx workflow.Context, deploymentID, phase string) {
	logger := workflow.GetLogger(ctx)
	err := workflow.ExecuteActivity(ctx, "SetDeploymentPhase", activity.SetPhaseParams{
		DeploymentID: deploymentID,
		Phase:        phase,
	}).Get(ctx, nil)
	if err != nil {
		logger.Warn("failed to record deployment phase", "deployment_id", deploymentID, "phase", phase, "error", err)
	}
}

// completeDeployment writes the terminal result and sends the outcome
// notification. Both are best-effort relative to the primary error.
func completeDeployment(ctx workflow.Context, p DeployParams, result, detail string) {
	logger := workflow.GetLogger(ctx)

	var note *string
	if detail != "" {
		note = &detail
	}
	err := workflow.ExecuteActivity(ctx, "CompleteDeployment", activity.CompleteDeploymentParams{
		DeploymentID: p.DeploymentID,
		Result:       result,
		Note:         note,
	}).Get(ctx, nil)
	if err != nil {
		logger.Warn("failed to record deployment result", "deployment_id", p.DeploymentID, "error", err)
	}

	err = workflow.ExecuteActivity(ctx, "SendDeploymentNotification", activity.SendNotificationParams{
		DeploymentID: p.DeploymentID,
		Environment:  p.Environment,
		Version:      p.Version,
		Strategy:     p.Strategy,
		Result:       result,
		Detail:       detail,
	}).Get(ctx, nil)
	if err != nil {
		logger.Warn("failed to send deployment notification", "deployment_id", p.DeploymentID, "error", err)
	}
}
