// Package activity implements the Temporal activities behind the deployment
// workflows. Each struct groups the activities for one dependency so workers
// can register them together.
package activity

import (
	"context"
	"fmt"

	"github.com/yukyudata/deployops/internal/metrics"
	"github.com/yukyudata/deployops/internal/model"
	"github.com/yukyudata/deployops/internal/store"
)

// Record contains activities that persist deployment state in the control
// database. Workflows are the source of truth for progress; these rows exist
// for the API and operator tooling.
type Record struct {
	store *store.DeploymentStore
}

// NewRecord creates a new Record activity struct.
func NewRecord(s *store.DeploymentStore) *Record {
	return &Record{store: s}
}

// CreateDeploymentParams holds parameters for CreateDeploymentRecord.
type CreateDeploymentParams struct {
	ID          string `json:"id"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
	Strategy    string `json:"strategy"`
	TargetSlot  string `json:"target_slot"`
	SkipBackup  bool   `json:"skip_backup"`
	DryRun      bool   `json:"dry_run"`
}

// CreateDeploymentRecord inserts the initial row for a deployment run.
func (a *Record) CreateDeploymentRecord(ctx context.Context, params CreateDeploymentParams) error {
	d := store.NewDeployment(params.ID, params.Version, params.Environment, params.Strategy,
		model.Color(params.TargetSlot), params.SkipBackup, params.DryRun)
	if err := a.store.Create(ctx, d); err != nil {
		return fmt.Errorf("create deployment record: %w", err)
	}
	return nil
}

// SetPhaseParams holds parameters for SetDeploymentPhase.
type SetPhaseParams struct {
	DeploymentID string `json:"deployment_id"`
	Phase        string `json:"phase"`
}

// SetDeploymentPhase records the phase a deployment has entered.
func (a *Record) SetDeploymentPhase(ctx context.Context, params SetPhaseParams) error {
	return a.store.SetPhase(ctx, params.DeploymentID, params.Phase)
}

// SetBackupPathParams holds parameters for SetDeploymentBackupPath.
type SetBackupPathParams struct {
	DeploymentID string `json:"deployment_id"`
	BackupPath   string `json:"backup_path"`
}

// SetDeploymentBackupPath records the pre-deploy backup artifact.
func (a *Record) SetDeploymentBackupPath(ctx context.Context, params SetBackupPathParams) error {
	return a.store.SetBackupPath(ctx, params.DeploymentID, params.BackupPath)
}

// CompleteDeploymentParams holds parameters for CompleteDeployment.
type CompleteDeploymentParams struct {
	DeploymentID string  `json:"deployment_id"`
	Result       string  `json:"result"`
	Note         *string `json:"note,omitempty"`
}

// CompleteDeployment writes the terminal result for a run. The store rejects
// a second terminal result for the same deployment.
func (a *Record) CompleteDeployment(ctx context.Context, params CompleteDeploymentParams) error {
	if err := a.store.Complete(ctx, params.DeploymentID, params.Result, params.Note); err != nil {
		return err
	}
	metrics.DeploymentResults.WithLabelValues(params.Result).Inc()
	return nil
}
