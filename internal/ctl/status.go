package ctl

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/yukyudata/deployops/internal/model"
)

func resolveKey(apiKey string) string {
	if apiKey != "" {
		return apiKey
	}
	return os.Getenv("DEPLOYOPS_API_KEY")
}

// Status prints one deployment record.
func Status(apiURL, apiKey, deploymentID string) error {
	client := NewClient(apiURL, resolveKey(apiKey))

	resp, err := client.Get("/deployments/" + deploymentID)
	if err != nil {
		return err
	}

	var d model.Deployment
	if err := json.Unmarshal(resp.Body, &d); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	printDeployment(d)
	return nil
}

// List prints recent deployments, newest first.
func List(apiURL, apiKey string) error {
	client := NewClient(apiURL, resolveKey(apiKey))

	resp, err := client.Get("/deployments")
	if err != nil {
		return err
	}
	items, err := resp.Items()
	if err != nil {
		return err
	}

	var deployments []model.Deployment
	if err := json.Unmarshal(items, &deployments); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	if len(deployments) == 0 {
		fmt.Println("No deployments found.")
		return nil
	}
	for _, d := range deployments {
		result := d.Result
		if result == "" {
			result = "in progress (" + d.Phase + ")"
		}
		fmt.Printf("%-28s %-12s %-10s %s\n", d.ID, d.Version, d.Strategy, result)
	}
	return nil
}

// SlotStatus prints the active blue/green slot and the next deploy target.
func SlotStatus(apiURL, apiKey string) error {
	client := NewClient(apiURL, resolveKey(apiKey))

	resp, err := client.Get("/slot")
	if err != nil {
		return err
	}

	var s struct {
		Active     string `json:"active"`
		ActivePort int    `json:"active_port"`
		Target     string `json:"target"`
		TargetPort int    `json:"target_port"`
	}
	if err := json.Unmarshal(resp.Body, &s); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	fmt.Printf("Active slot: %s (port %d)\n", s.Active, s.ActivePort)
	fmt.Printf("Next target: %s (port %d)\n", s.Target, s.TargetPort)
	return nil
}

func printDeployment(d model.Deployment) {
	fmt.Printf("Deployment:  %s\n", d.ID)
	fmt.Printf("Version:     %s\n", d.Version)
	fmt.Printf("Strategy:    %s\n", d.Strategy)
	fmt.Printf("Environment: %s\n", d.Environment)
	fmt.Printf("Target slot: %s\n", d.TargetSlot)
	fmt.Printf("Phase:       %s\n", d.Phase)
	if d.Result != "" {
		fmt.Printf("Result:      %s\n", d.Result)
	} else {
		fmt.Printf("Result:      in progress\n")
	}
	if d.ResultNote != nil && *d.ResultNote != "" {
		fmt.Printf("Note:        %s\n", *d.ResultNote)
	}
	if d.BackupPath != "" {
		fmt.Printf("Backup:      %s\n", d.BackupPath)
	}
	fmt.Printf("Started:     %s\n", d.StartedAt.Format("2006-01-02 15:04:05 MST"))
	if d.CompletedAt != nil {
		fmt.Printf("Completed:   %s\n", d.CompletedAt.Format("2006-01-02 15:04:05 MST"))
	}
}
