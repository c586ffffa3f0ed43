package ctl

import (
	"encoding/json"
	"fmt"
	"time"
)

// Deploy starts a blue-green deployment from a release definition. With wait
// set it blocks until the run reaches a terminal result.
func Deploy(configPath string, wait bool, timeout time.Duration) error {
	cfg, err := LoadRelease(configPath)
	if err != nil {
		return err
	}
	client := NewClient(cfg.APIURL, cfg.APIKey)

	resp, err := client.Post("/deployments", map[string]any{
		"version":     cfg.Version,
		"image":       cfg.Image,
		"environment": cfg.Environment,
		"skip_backup": cfg.SkipBackup,
		"dry_run":     cfg.DryRun,
	})
	if err != nil {
		return err
	}

	var started struct {
		DeploymentID string `json:"deployment_id"`
		Strategy     string `json:"strategy"`
		Version      string `json:"version"`
	}
	if err := json.Unmarshal(resp.Body, &started); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	fmt.Printf("Deployment %s started (%s, version %s)\n",
		started.DeploymentID, started.Strategy, started.Version)

	if !wait {
		return nil
	}
	return WaitForResult(client, started.DeploymentID, timeout)
}

// Canary starts a staged canary rollout from a release definition.
func Canary(configPath string, wait bool, timeout time.Duration) error {
	cfg, err := LoadRelease(configPath)
	if err != nil {
		return err
	}
	client := NewClient(cfg.APIURL, cfg.APIKey)

	resp, err := client.Post("/deployments/canary", map[string]any{
		"version":     cfg.Version,
		"image":       cfg.Image,
		"environment": cfg.Environment,
	})
	if err != nil {
		return err
	}

	var started struct {
		DeploymentID string `json:"deployment_id"`
		Version      string `json:"version"`
	}
	if err := json.Unmarshal(resp.Body, &started); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	fmt.Printf("Canary %s started (version %s)\n", started.DeploymentID, started.Version)

	if !wait {
		return nil
	}
	return WaitForResult(client, started.DeploymentID, timeout)
}

// Rollback starts a manual rollback. Both deploymentID and backupPath empty
// means "restore the most recent backup".
func Rollback(apiURL, apiKey, deploymentID, backupPath string) error {
	client := NewClient(apiURL, resolveKey(apiKey))

	resp, err := client.Post("/rollbacks", map[string]any{
		"deployment_id": deploymentID,
		"backup_path":   backupPath,
	})
	if err != nil {
		return err
	}

	var started struct {
		RollbackID string `json:"rollback_id"`
		BackupPath string `json:"backup_path"`
	}
	if err := json.Unmarshal(resp.Body, &started); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	if started.BackupPath == "" {
		fmt.Printf("Rollback %s started (latest backup)\n", started.RollbackID)
	} else {
		fmt.Printf("Rollback %s started (backup %s)\n", started.RollbackID, started.BackupPath)
	}
	return nil
}
