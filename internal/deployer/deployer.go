package deployer

import (
	"context"
	"time"
)

// SlotOpts holds the options for starting an application slot container.
type SlotOpts struct {
	Name        string
	Image       string
	Env         map[string]string
	Volumes     []string
	HostPort    int
	AppPort     int
	Network     string
	HealthCheck *HealthCheck
}

// HealthCheck holds container-level health check configuration.
type HealthCheck struct {
	Test     []string
	Interval time.Duration
	Timeout  time.Duration
	Retries  int
}

// SlotStatus holds the observed state of a slot container.
type SlotStatus struct {
	ID      string
	Name    string
	State   string // running, exited, created, etc.
	Health  string // healthy, unhealthy, starting, none
	Running bool
}

// ExecResult holds the result of executing a command in a slot container.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Deployer defines container operations for the blue/green slots and the
// front proxy. Implementations must be safe to call from Temporal activities.
type Deployer interface {
	PullImage(ctx context.Context, image string) (digest string, err error)
	StartSlot(ctx context.Context, opts SlotOpts) (containerID string, err error)
	StartContainer(ctx context.Context, nameOrID string) error
	StopContainer(ctx context.Context, nameOrID string) error
	RemoveContainer(ctx context.Context, nameOrID string) error
	InspectContainer(ctx context.Context, nameOrID string) (*SlotStatus, error)
	ExecInContainer(ctx context.Context, nameOrID string, cmd []string) (*ExecResult, error)
}
