package activity

import (
	"context"
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"

	"github.com/yukyudata/deployops/internal/notify"
)

// Notify contains the deployment notification activity.
type Notify struct {
	notifier *notify.Notifier
}

// NewNotify creates a new Notify activity struct.
func NewNotify(n *notify.Notifier) *Notify {
	return &Notify{notifier: n}
}

// SendNotificationParams holds parameters for SendDeploymentNotification.
type SendNotificationParams struct {
	DeploymentID string `json:"deployment_id"`
	Environment  string `json:"environment"`
	Version      string `json:"version"`
	Strategy     string `json:"strategy"`
	Result       string `json:"result"`
	Detail       string `json:"detail,omitempty"`
}

// SendDeploymentNotification posts the deployment outcome to the configured
// webhook. A 4xx rejection is non-retryable; 5xx and transport errors retry
// under the activity's retry policy.
func (a *Notify) SendDeploymentNotification(ctx context.Context, params SendNotificationParams) error {
	err := a.notifier.SendDeployment(ctx, notify.DeploymentEvent{
		DeploymentID: params.DeploymentID,
		Environment:  params.Environment,
		Version:      params.Version,
		Strategy:     params.Strategy,
		Result:       params.Result,
		Detail:       params.Detail,
		Timestamp:    time.Now().UTC(),
	})
	if errors.Is(err, notify.ErrRejected) {
		return temporal.NewNonRetryableApplicationError("webhook rejected notification", "WEBHOOK_REJECTED", err)
	}
	return err
}
