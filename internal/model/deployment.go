package model

import "time"

// Deployment is the record of a single blue-green or canary deployment run.
// Result is write-once: it stays empty while the run is in flight and is set
// exactly once when the run reaches a terminal state.
type Deployment struct {
	ID          string     `json:"id"`
	Version     string     `json:"version"`
	Environment string     `json:"environment"`
	Strategy    string     `json:"strategy"`
	TargetSlot  string     `json:"target_slot"`
	Phase       string     `json:"phase"`
	Result      string     `json:"result,omitempty"`
	ResultNote  *string    `json:"result_note,omitempty"`
	BackupPath  string     `json:"backup_path,omitempty"`
	SkipBackup  bool       `json:"skip_backup"`
	DryRun      bool       `json:"dry_run"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Deployment strategies.
const (
	StrategyBlueGreen = "blue-green"
	StrategyCanary    = "canary"
)

// Terminal deployment results.
const (
	ResultSuccess  = "success"
	ResultRollback = "rollback"
	ResultFailed   = "failed"
)

// Deployment phases, in execution order.
const (
	PhasePreflight    = "preflight"
	PhaseBackup       = "backup"
	PhaseBuildStart   = "build_start"
	PhaseHealthCheck  = "health_check"
	PhaseMigrate      = "migrate"
	PhaseSmokeTest    = "smoke_test"
	PhaseSwitch       = "switch_traffic"
	PhaseMonitor      = "monitor_error_rate"
	PhaseDecommission = "decommission_old"
	PhaseDone         = "done"
	PhaseRollback     = "rollback"
)
