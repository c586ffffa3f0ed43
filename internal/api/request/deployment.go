package request

// CreateDeployment is the request body for starting a blue-green deployment.
type CreateDeployment struct {
	Version     string `json:"version" validate:"required,version"`
	Image       string `json:"image,omitempty" validate:"omitempty,min=1,max=255"`
	Environment string `json:"environment,omitempty" validate:"omitempty,oneof=production staging"`
	SkipBackup  bool   `json:"skip_backup,omitempty"`
	DryRun      bool   `json:"dry_run,omitempty"`
}

// CreateCanary is the request body for starting a canary rollout.
type CreateCanary struct {
	Version     string `json:"version" validate:"required,version"`
	Image       string `json:"image,omitempty" validate:"omitempty,min=1,max=255"`
	Environment string `json:"environment,omitempty" validate:"omitempty,oneof=production staging"`
}

// CreateRollback is the request body for a manual rollback. Both fields
// empty means "restore the most recent backup".
type CreateRollback struct {
	DeploymentID string `json:"deployment_id,omitempty"`
	BackupPath   string `json:"backup_path,omitempty"`
}
