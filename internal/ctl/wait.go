package ctl

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/yukyudata/deployops/internal/model"
)

const pollInterval = 3 * time.Second

// WaitForResult polls a deployment until it reaches a terminal result or the
// timeout expires. A rollback or failed result is reported as an error.
func WaitForResult(client *Client, deploymentID string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	lastPhase := ""

	for {
		resp, err := client.Get("/deployments/" + deploymentID)
		if err != nil {
			return fmt.Errorf("poll deployment %s: %w", deploymentID, err)
		}

		var d model.Deployment
		if err := json.Unmarshal(resp.Body, &d); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}

		if d.Phase != lastPhase {
			fmt.Printf("  phase: %s\n", d.Phase)
			lastPhase = d.Phase
		}

		switch d.Result {
		case model.ResultSuccess:
			fmt.Printf("Deployment %s succeeded.\n", deploymentID)
			return nil
		case model.ResultRollback:
			return fmt.Errorf("deployment %s was rolled back", deploymentID)
		case model.ResultFailed:
			return fmt.Errorf("deployment %s failed, manual intervention may be required", deploymentID)
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("timed out after %s waiting for deployment %s", timeout, deploymentID)
		}
		time.Sleep(pollInterval)
	}
}
