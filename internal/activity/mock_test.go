package activity

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/yukyudata/deployops/internal/deployer"
)

// --- Mock deployer ---

type mockDeployer struct {
	mock.Mock
}

func (m *mockDeployer) PullImage(ctx context.Context, image string) (string, error) {
	args := m.Called(ctx, image)
	return args.String(0), args.Error(1)
}

func (m *mockDeployer) StartSlot(ctx context.Context, opts deployer.SlotOpts) (string, error) {
	args := m.Called(ctx, opts)
	return args.String(0), args.Error(1)
}

func (m *mockDeployer) StartContainer(ctx context.Context, nameOrID string) error {
	return m.Called(ctx, nameOrID).Error(0)
}

func (m *mockDeployer) StopContainer(ctx context.Context, nameOrID string) error {
	return m.Called(ctx, nameOrID).Error(0)
}

func (m *mockDeployer) RemoveContainer(ctx context.Context, nameOrID string) error {
	return m.Called(ctx, nameOrID).Error(0)
}

func (m *mockDeployer) InspectContainer(ctx context.Context, nameOrID string) (*deployer.SlotStatus, error) {
	args := m.Called(ctx, nameOrID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deployer.SlotStatus), args.Error(1)
}

func (m *mockDeployer) ExecInContainer(ctx context.Context, nameOrID string, cmd []string) (*deployer.ExecResult, error) {
	args := m.Called(ctx, nameOrID, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deployer.ExecResult), args.Error(1)
}
