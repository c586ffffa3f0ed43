// Package notify posts deployment outcomes to a Slack-compatible webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrRejected marks a 4xx webhook response. Retrying the same payload will
// not help, so callers should treat it as permanent.
var ErrRejected = errors.New("webhook rejected payload")

// Colors for Slack attachments.
const (
	ColorGood   = "good"   // green: success
	ColorDanger = "danger" // red: failure / rollback
)

// DeploymentEvent is the notification payload for a terminal deployment state.
type DeploymentEvent struct {
	DeploymentID string    `json:"deployment_id"`
	Environment  string    `json:"environment"`
	Version      string    `json:"version"`
	Strategy     string    `json:"strategy"`
	Result       string    `json:"result"`
	Detail       string    `json:"detail,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Notifier posts events to a single webhook URL. An empty URL disables
// notifications without branching at every call site.
type Notifier struct {
	url    string
	client *http.Client
}

func NewNotifier(url string) *Notifier {
	return &Notifier{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool {
	return n.url != ""
}

// SendDeployment posts a color-coded deployment notification.
func (n *Notifier) SendDeployment(ctx context.Context, ev DeploymentEvent) error {
	if !n.Enabled() {
		return nil
	}

	body, err := json.Marshal(buildSlackPayload(ev))
	if err != nil {
		return fmt.Errorf("build webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook POST: %w", err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return fmt.Errorf("webhook returned %d: %w", resp.StatusCode, ErrRejected)
	}
	return fmt.Errorf("webhook returned %d", resp.StatusCode)
}

func buildSlackPayload(ev DeploymentEvent) map[string]any {
	color := ColorGood
	emoji := ":rocket:"
	if ev.Result != "success" {
		color = ColorDanger
		emoji = ":rotating_light:"
	}

	text := fmt.Sprintf("%s Deployment *%s* → *%s* (%s): *%s*",
		emoji, ev.DeploymentID, ev.Environment, ev.Strategy, ev.Result)

	fields := []map[string]any{
		{"title": "Deployment", "value": ev.DeploymentID, "short": true},
		{"title": "Environment", "value": ev.Environment, "short": true},
		{"title": "Version", "value": ev.Version, "short": true},
		{"title": "Result", "value": ev.Result, "short": true},
	}
	if ev.Detail != "" {
		fields = append(fields, map[string]any{
			"title": "Detail", "value": ev.Detail, "short": false,
		})
	}

	return map[string]any{
		"text": text,
		"attachments": []map[string]any{
			{
				"color":  color,
				"fields": fields,
				"ts":     ev.Timestamp.Unix(),
			},
		},
	}
}
