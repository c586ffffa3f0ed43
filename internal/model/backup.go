package model

import "time"

// BackupArtifact describes a point-in-time copy of the application data store.
// Pre-deploy backups are consumed by rollback and cleaned up under the
// retention policy; pre-rollback snapshots are append-only and never deleted.
type BackupArtifact struct {
	Path         string    `json:"path"`
	DeploymentID string    `json:"deployment_id,omitempty"`
	Kind         string    `json:"kind"`
	SizeBytes    int64     `json:"size_bytes"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	BackupKindPreDeploy   = "pre_deploy"
	BackupKindPreRollback = "pre_rollback"
)
