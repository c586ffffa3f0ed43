package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/yukyudata/deployops/internal/deployer"
)

// DeployHealthCheck holds container health check config (serializable via Temporal).
type DeployHealthCheck struct {
	Test     []string      `json:"test"`
	Interval time.Duration `json:"interval"`
	Timeout  time.Duration `json:"timeout"`
	Retries  int           `json:"retries"`
}

// Deploy contains activities for managing the blue/green slot containers.
type Deploy struct {
	deployer deployer.Deployer
}

// NewDeploy creates a new Deploy activity struct.
func NewDeploy(d deployer.Deployer) *Deploy {
	return &Deploy{deployer: d}
}

// PullImageParams holds parameters for PullImage.
type PullImageParams struct {
	Image string `json:"image"`
}

// PullImageResult holds the result of PullImage.
type PullImageResult struct {
	Digest string `json:"digest"`
}

// PullImage pulls the application image onto the host.
func (a *Deploy) PullImage(ctx context.Context, params PullImageParams) (*PullImageResult, error) {
	digest, err := a.deployer.PullImage(ctx, params.Image)
	if err != nil {
		return nil, fmt.Errorf("pull image: %w", err)
	}
	return &PullImageResult{Digest: digest}, nil
}

// StartSlotParams holds parameters for StartSlot.
type StartSlotParams struct {
	Name        string             `json:"name"`
	Image       string             `json:"image"`
	Env         map[string]string  `json:"env"`
	Volumes     []string           `json:"volumes"`
	HostPort    int                `json:"host_port"`
	AppPort     int                `json:"app_port"`
	Network     string             `json:"network,omitempty"`
	HealthCheck *DeployHealthCheck `json:"health_check,omitempty"`
}

// StartSlotResult holds the result of StartSlot.
type StartSlotResult struct {
	ContainerID string `json:"container_id"`
}

// StartSlot creates and starts a slot container.
func (a *Deploy) StartSlot(ctx context.Context, params StartSlotParams) (*StartSlotResult, error) {
	opts := deployer.SlotOpts{
		Name:     params.Name,
		Image:    params.Image,
		Env:      params.Env,
		Volumes:  params.Volumes,
		HostPort: params.HostPort,
		AppPort:  params.AppPort,
		Network:  params.Network,
	}
	if params.HealthCheck != nil {
		opts.HealthCheck = &deployer.HealthCheck{
			Test:     params.HealthCheck.Test,
			Interval: params.HealthCheck.Interval,
			Timeout:  params.HealthCheck.Timeout,
			Retries:  params.HealthCheck.Retries,
		}
	}
	id, err := a.deployer.StartSlot(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("start slot %s: %w", params.Name, err)
	}
	return &StartSlotResult{ContainerID: id}, nil
}

// ContainerParams holds parameters for activities that act on one container.
type ContainerParams struct {
	NameOrID string `json:"name_or_id"`
}

// StopContainer stops a slot container.
func (a *Deploy) StopContainer(ctx context.Context, params ContainerParams) error {
	return a.deployer.StopContainer(ctx, params.NameOrID)
}

// RemoveContainer removes a stopped slot container.
func (a *Deploy) RemoveContainer(ctx context.Context, params ContainerParams) error {
	return a.deployer.RemoveContainer(ctx, params.NameOrID)
}

// RestartSlotParams holds parameters for RestartSlot.
type RestartSlotParams struct {
	NameOrID string `json:"name_or_id"`
}

// RestartSlot stops and starts an existing slot container in place. Used by
// rollback, where the container definition is unchanged and only the restored
// database underneath it differs.
func (a *Deploy) RestartSlot(ctx context.Context, params RestartSlotParams) error {
	if err := a.deployer.StopContainer(ctx, params.NameOrID); err != nil {
		return fmt.Errorf("stop slot %s: %w", params.NameOrID, err)
	}
	if err := a.deployer.StartContainer(ctx, params.NameOrID); err != nil {
		return fmt.Errorf("start slot %s: %w", params.NameOrID, err)
	}
	return nil
}

// InspectSlotResult holds the result of InspectSlot.
type InspectSlotResult struct {
	ID      string `json:"id"`
	State   string `json:"state"`
	Health  string `json:"health"`
	Running bool   `json:"running"`
}

// InspectSlot reports the container-level state of a slot.
func (a *Deploy) InspectSlot(ctx context.Context, params ContainerParams) (*InspectSlotResult, error) {
	st, err := a.deployer.InspectContainer(ctx, params.NameOrID)
	if err != nil {
		return nil, fmt.Errorf("inspect slot %s: %w", params.NameOrID, err)
	}
	return &InspectSlotResult{ID: st.ID, State: st.State, Health: st.Health, Running: st.Running}, nil
}
