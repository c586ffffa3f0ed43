package activity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"

	"github.com/yukyudata/deployops/internal/deployer"
)

func TestRunAppMigrations_Success(t *testing.T) {
	d := &mockDeployer{}
	a := NewMigrate(d)
	cmd := []string{"python", "manage_db.py", "migrate"}

	d.On("ExecInContainer", context.Background(), "yukyudata-green", cmd).
		Return(&deployer.ExecResult{ExitCode: 0, Stdout: "applied 2 migrations"}, nil)

	res, err := a.RunAppMigrations(context.Background(), RunAppMigrationsParams{
		Container: "yukyudata-green",
		Command:   cmd,
	})
	require.NoError(t, err)
	assert.Equal(t, "applied 2 migrations", res.Stdout)
	d.AssertExpectations(t)
}

func TestRunAppMigrations_NonZeroExit_NonRetryable(t *testing.T) {
	d := &mockDeployer{}
	a := NewMigrate(d)
	cmd := []string{"python", "manage_db.py", "migrate"}

	d.On("ExecInContainer", context.Background(), "yukyudata-green", cmd).
		Return(&deployer.ExecResult{ExitCode: 1, Stderr: "column already exists"}, nil)

	_, err := a.RunAppMigrations(context.Background(), RunAppMigrationsParams{
		Container: "yukyudata-green",
		Command:   cmd,
	})
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.True(t, appErr.NonRetryable())
	assert.Contains(t, err.Error(), "column already exists")
	d.AssertExpectations(t)
}

func TestRunAppMigrations_ExecError_Retryable(t *testing.T) {
	d := &mockDeployer{}
	a := NewMigrate(d)
	cmd := []string{"python", "manage_db.py", "migrate"}

	d.On("ExecInContainer", context.Background(), "yukyudata-green", cmd).
		Return(nil, errors.New("docker daemon unreachable"))

	_, err := a.RunAppMigrations(context.Background(), RunAppMigrationsParams{
		Container: "yukyudata-green",
		Command:   cmd,
	})
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	assert.False(t, errors.As(err, &appErr))
	d.AssertExpectations(t)
}
