package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"

	"github.com/yukyudata/deployops/internal/backup"
	"github.com/yukyudata/deployops/internal/model"
)

// Backup contains activities for database backup artifacts.
type Backup struct {
	store   *backup.Store
	offsite *backup.Offsite
}

// NewBackup creates a new Backup activity struct. offsite may be nil or
// disabled; uploads are skipped in that case.
func NewBackup(store *backup.Store, offsite *backup.Offsite) *Backup {
	return &Backup{store: store, offsite: offsite}
}

// BackupParams holds parameters for CreateBackup and SnapshotBackup.
type BackupParams struct {
	DeploymentID string `json:"deployment_id"`
}

// BackupResult describes a backup artifact.
type BackupResult struct {
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateBackup copies the live database into a timestamped pre-deploy
// artifact.
func (a *Backup) CreateBackup(ctx context.Context, params BackupParams) (*BackupResult, error) {
	art, err := a.store.Create(ctx, params.DeploymentID)
	if err != nil {
		return nil, fmt.Errorf("create backup: %w", err)
	}
	return &BackupResult{Path: art.Path, SizeBytes: art.SizeBytes, CreatedAt: art.CreatedAt}, nil
}

// SnapshotBackup takes the pre-rollback safety snapshot of the live database.
// Snapshots are never candidates for ResolveBackup.
func (a *Backup) SnapshotBackup(ctx context.Context, params BackupParams) (*BackupResult, error) {
	art, err := a.store.Snapshot(ctx, params.DeploymentID)
	if err != nil {
		return nil, fmt.Errorf("snapshot backup: %w", err)
	}
	return &BackupResult{Path: art.Path, SizeBytes: art.SizeBytes, CreatedAt: art.CreatedAt}, nil
}

// ResolveBackupParams holds parameters for ResolveBackup. An empty Path
// selects the most recent pre-deploy artifact.
type ResolveBackupParams struct {
	Path string `json:"path,omitempty"`
}

// ResolveBackup locates the artifact a rollback will restore. A missing
// artifact is non-retryable: retrying will not make a backup appear.
func (a *Backup) ResolveBackup(ctx context.Context, params ResolveBackupParams) (*BackupResult, error) {
	var (
		art *model.BackupArtifact
		err error
	)
	if params.Path != "" {
		art, err = a.store.Resolve(ctx, params.Path)
	} else {
		art, err = a.store.ResolveLatest(ctx)
	}
	if errors.Is(err, backup.ErrNoBackup) {
		return nil, temporal.NewNonRetryableApplicationError("no backup available", "NO_BACKUP", err)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve backup: %w", err)
	}
	return &BackupResult{Path: art.Path, SizeBytes: art.SizeBytes, CreatedAt: art.CreatedAt}, nil
}

// RestoreBackupParams holds parameters for RestoreBackup.
type RestoreBackupParams struct {
	Path string `json:"path"`
}

// RestoreBackup replaces the live database with the named artifact. The swap
// is atomic: on failure the live database is untouched.
func (a *Backup) RestoreBackup(ctx context.Context, params RestoreBackupParams) error {
	if err := a.store.Restore(ctx, params.Path); err != nil {
		if errors.Is(err, backup.ErrNoBackup) {
			return temporal.NewNonRetryableApplicationError("backup artifact missing", "NO_BACKUP", err)
		}
		return fmt.Errorf("restore backup: %w", err)
	}
	return nil
}

// CleanupBackupsParams holds parameters for CleanupOldBackups.
type CleanupBackupsParams struct {
	RetentionDays int `json:"retention_days"`
}

// CleanupBackupsResult holds the result of CleanupOldBackups.
type CleanupBackupsResult struct {
	Removed int `json:"removed"`
}

// CleanupOldBackups deletes pre-deploy artifacts older than the retention
// window. Safety snapshots are kept.
func (a *Backup) CleanupOldBackups(ctx context.Context, params CleanupBackupsParams) (*CleanupBackupsResult, error) {
	removed, err := a.store.Cleanup(ctx, params.RetentionDays)
	if err != nil {
		return nil, fmt.Errorf("cleanup backups: %w", err)
	}
	return &CleanupBackupsResult{Removed: removed}, nil
}

// UploadBackupParams holds parameters for UploadBackupOffsite.
type UploadBackupParams struct {
	Path string `json:"path"`
}

// UploadBackupOffsite copies an artifact to the S3 bucket. It is a no-op
// when offsite storage is not configured.
func (a *Backup) UploadBackupOffsite(ctx context.Context, params UploadBackupParams) error {
	if a.offsite == nil || !a.offsite.Enabled() {
		return nil
	}
	if err := a.offsite.Upload(ctx, params.Path); err != nil {
		return fmt.Errorf("upload backup offsite: %w", err)
	}
	return nil
}
