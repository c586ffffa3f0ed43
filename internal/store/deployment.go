// Package store persists deployment records in the control-plane database.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yukyudata/deployops/internal/model"
)

// DB is the subset of pgxpool.Pool the store needs, kept narrow so tests can
// substitute a mock.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DeploymentStore reads and writes deployment records. The result column is
// write-once: Complete refuses to overwrite a terminal result.
type DeploymentStore struct {
	db DB
}

func NewDeploymentStore(db DB) *DeploymentStore {
	return &DeploymentStore{db: db}
}

const deploymentColumns = `id, version, environment, strategy, target_slot, phase, result, result_note, backup_path, skip_backup, dry_run, started_at, completed_at, created_at, updated_at`

func (s *DeploymentStore) Create(ctx context.Context, d *model.Deployment) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO deployments (id, version, environment, strategy, target_slot, phase, backup_path, skip_backup, dry_run, started_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		d.ID, d.Version, d.Environment, d.Strategy, d.TargetSlot, d.Phase,
		d.BackupPath, d.SkipBackup, d.DryRun, d.StartedAt, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert deployment: %w", err)
	}
	return nil
}

func (s *DeploymentStore) GetByID(ctx context.Context, id string) (*model.Deployment, error) {
	var d model.Deployment
	var result *string
	err := s.db.QueryRow(ctx,
		`SELECT `+deploymentColumns+` FROM deployments WHERE id = $1`, id,
	).Scan(&d.ID, &d.Version, &d.Environment, &d.Strategy, &d.TargetSlot, &d.Phase,
		&result, &d.ResultNote, &d.BackupPath, &d.SkipBackup, &d.DryRun,
		&d.StartedAt, &d.CompletedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get deployment %s: %w", id, err)
	}
	if result != nil {
		d.Result = *result
	}
	return &d, nil
}

// List returns deployments newest-first with cursor pagination on id.
func (s *DeploymentStore) List(ctx context.Context, limit int, cursor string) ([]model.Deployment, bool, error) {
	query := `SELECT ` + deploymentColumns + ` FROM deployments`
	args := []any{}
	argIdx := 1

	if cursor != "" {
		query += fmt.Sprintf(` WHERE id < $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id DESC`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list deployments: %w", err)
	}
	defer rows.Close()

	var deployments []model.Deployment
	for rows.Next() {
		var d model.Deployment
		var result *string
		if err := rows.Scan(&d.ID, &d.Version, &d.Environment, &d.Strategy, &d.TargetSlot,
			&d.Phase, &result, &d.ResultNote, &d.BackupPath, &d.SkipBackup, &d.DryRun,
			&d.StartedAt, &d.CompletedAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan deployment: %w", err)
		}
		if result != nil {
			d.Result = *result
		}
		deployments = append(deployments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate deployments: %w", err)
	}

	hasMore := len(deployments) > limit
	if hasMore {
		deployments = deployments[:limit]
	}
	return deployments, hasMore, nil
}

// SetPhase advances the recorded pipeline phase.
func (s *DeploymentStore) SetPhase(ctx context.Context, id, phase string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE deployments SET phase = $1, updated_at = now() WHERE id = $2`,
		phase, id,
	)
	if err != nil {
		return fmt.Errorf("set deployment %s phase: %w", id, err)
	}
	return nil
}

// SetBackupPath records the pre-deploy backup artifact for later rollback.
func (s *DeploymentStore) SetBackupPath(ctx context.Context, id, path string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE deployments SET backup_path = $1, updated_at = now() WHERE id = $2`,
		path, id,
	)
	if err != nil {
		return fmt.Errorf("set deployment %s backup path: %w", id, err)
	}
	return nil
}

// Complete writes the terminal result exactly once. A second call for the
// same deployment fails instead of overwriting.
func (s *DeploymentStore) Complete(ctx context.Context, id, result string, note *string) error {
	switch result {
	case model.ResultSuccess, model.ResultRollback, model.ResultFailed:
	default:
		return fmt.Errorf("invalid deployment result %q", result)
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE deployments SET result = $1, result_note = $2, completed_at = now(), updated_at = now()
		 WHERE id = $3 AND result IS NULL`,
		result, note, id,
	)
	if err != nil {
		return fmt.Errorf("complete deployment %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deployment %s already has a result", id)
	}
	return nil
}

// Latest returns the most recently started deployment, or nil when the table
// is empty.
func (s *DeploymentStore) Latest(ctx context.Context) (*model.Deployment, error) {
	var d model.Deployment
	var result *string
	err := s.db.QueryRow(ctx,
		`SELECT `+deploymentColumns+` FROM deployments ORDER BY started_at DESC LIMIT 1`,
	).Scan(&d.ID, &d.Version, &d.Environment, &d.Strategy, &d.TargetSlot, &d.Phase,
		&result, &d.ResultNote, &d.BackupPath, &d.SkipBackup, &d.DryRun,
		&d.StartedAt, &d.CompletedAt, &d.CreatedAt, &d.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest deployment: %w", err)
	}
	if result != nil {
		d.Result = *result
	}
	return &d, nil
}

// NewDeployment builds a fresh record in the preflight phase.
func NewDeployment(id, version, environment, strategy string, targetSlot model.Color, skipBackup, dryRun bool) *model.Deployment {
	now := time.Now()
	return &model.Deployment{
		ID:          id,
		Version:     version,
		Environment: environment,
		Strategy:    strategy,
		TargetSlot:  string(targetSlot),
		Phase:       model.PhasePreflight,
		SkipBackup:  skipBackup,
		DryRun:      dryRun,
		StartedAt:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
