package activity

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/temporal"

	"github.com/yukyudata/deployops/internal/deployer"
)

// Migrate contains the application schema migration activity.
type Migrate struct {
	deployer deployer.Deployer
}

// NewMigrate creates a new Migrate activity struct.
func NewMigrate(d deployer.Deployer) *Migrate {
	return &Migrate{deployer: d}
}

// RunAppMigrationsParams holds parameters for RunAppMigrations.
type RunAppMigrationsParams struct {
	Container string   `json:"container"`
	Command   []string `json:"command"`
}

// RunAppMigrationsResult holds the migration command output.
type RunAppMigrationsResult struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// RunAppMigrations executes the application's migration command inside the
// new slot container. A non-zero exit is non-retryable: a failed migration
// must trigger rollback, not another attempt against a half-migrated schema.
func (a *Migrate) RunAppMigrations(ctx context.Context, params RunAppMigrationsParams) (*RunAppMigrationsResult, error) {
	res, err := a.deployer.ExecInContainer(ctx, params.Container, params.Command)
	if err != nil {
		return nil, fmt.Errorf("run migrations in %s: %w", params.Container, err)
	}
	if res.ExitCode != 0 {
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("migration exited %d: %s", res.ExitCode, res.Stderr), "MIGRATION_FAILED", nil)
	}
	return &RunAppMigrationsResult{Stdout: res.Stdout, Stderr: res.Stderr}, nil
}
