package activity

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.temporal.io/sdk/temporal"

	"github.com/yukyudata/deployops/internal/deployer"
)

// Preflight contains the pre-deployment environment checks.
type Preflight struct {
	deployer   deployer.Deployer
	backupDir  string
	liveDBPath string
	proxy      string
}

// NewPreflight creates a new Preflight activity struct.
func NewPreflight(d deployer.Deployer, backupDir, liveDBPath, proxy string) *Preflight {
	return &Preflight{deployer: d, backupDir: backupDir, liveDBPath: liveDBPath, proxy: proxy}
}

// RunPreflightParams holds parameters for RunPreflight.
type RunPreflightParams struct {
	Image string `json:"image"`
}

// RunPreflight verifies the host is ready for a deployment: the backup
// directory is writable, the live database directory exists, and the front
// proxy container is running. Environment problems are non-retryable; they
// need an operator, not another attempt.
func (a *Preflight) RunPreflight(ctx context.Context, params RunPreflightParams) error {
	if params.Image == "" {
		return temporal.NewNonRetryableApplicationError("no application image configured", "PREFLIGHT", nil)
	}

	if err := os.MkdirAll(a.backupDir, 0o750); err != nil {
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("backup directory %s not usable", a.backupDir), "PREFLIGHT", err)
	}
	probe, err := os.CreateTemp(a.backupDir, ".preflight-*")
	if err != nil {
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("backup directory %s not writable", a.backupDir), "PREFLIGHT", err)
	}
	probe.Close()
	os.Remove(probe.Name())

	if _, err := os.Stat(filepath.Dir(a.liveDBPath)); err != nil {
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("database directory %s missing", filepath.Dir(a.liveDBPath)), "PREFLIGHT", err)
	}

	status, err := a.deployer.InspectContainer(ctx, a.proxy)
	if err != nil {
		return fmt.Errorf("inspect proxy %s: %w", a.proxy, err)
	}
	if !status.Running {
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("proxy container %s is not running", a.proxy), "PREFLIGHT", nil)
	}
	return nil
}
