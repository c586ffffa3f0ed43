package deployer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
)

// DockerDeployer implements Deployer against a single Docker daemon.
type DockerDeployer struct {
	host string
}

// NewDockerDeployer creates a DockerDeployer for the given daemon address
// (e.g. "unix:///var/run/docker.sock").
func NewDockerDeployer(host string) *DockerDeployer {
	return &DockerDeployer{host: host}
}

func (d *DockerDeployer) newClient() (*client.Client, error) {
	return client.NewClientWithOpts(
		client.WithHost(d.host),
		client.WithAPIVersionNegotiation(),
	)
}

func (d *DockerDeployer) PullImage(ctx context.Context, img string) (string, error) {
	cli, err := d.newClient()
	if err != nil {
		return "", fmt.Errorf("create docker client: %w", err)
	}
	defer cli.Close()

	reader, err := cli.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return "", fmt.Errorf("pull image %s: %w", img, err)
	}
	defer reader.Close()
	// Drain the pull output.
	_, _ = io.Copy(io.Discard, reader)

	inspect, _, err := cli.ImageInspectWithRaw(ctx, img)
	if err != nil {
		return "", fmt.Errorf("inspect image %s: %w", img, err)
	}

	digest := ""
	if len(inspect.RepoDigests) > 0 {
		digest = inspect.RepoDigests[0]
	}
	return digest, nil
}

func (d *DockerDeployer) StartSlot(ctx context.Context, opts SlotOpts) (string, error) {
	cli, err := d.newClient()
	if err != nil {
		return "", fmt.Errorf("create docker client: %w", err)
	}
	defer cli.Close()

	env := make([]string, 0, len(opts.Env))
	for k, v := range opts.Env {
		env = append(env, k+"="+v)
	}

	appPort := nat.Port(strconv.Itoa(opts.AppPort) + "/tcp")
	config := &container.Config{
		Image:        opts.Image,
		Env:          env,
		ExposedPorts: nat.PortSet{appPort: struct{}{}},
	}
	if opts.HealthCheck != nil {
		config.Healthcheck = &container.HealthConfig{
			Test:     opts.HealthCheck.Test,
			Interval: opts.HealthCheck.Interval,
			Timeout:  opts.HealthCheck.Timeout,
			Retries:  opts.HealthCheck.Retries,
		}
	}

	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			appPort: []nat.PortBinding{{HostPort: strconv.Itoa(opts.HostPort)}},
		},
		Binds: opts.Volumes,
	}

	var networkConfig *network.NetworkingConfig
	if opts.Network != "" {
		networkConfig = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				opts.Network: {},
			},
		}
	}

	resp, err := cli.ContainerCreate(ctx, config, hostConfig, networkConfig, nil, opts.Name)
	if err != nil {
		return "", fmt.Errorf("create container %s: %w", opts.Name, err)
	}

	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("start container %s: %w", opts.Name, err)
	}

	return resp.ID, nil
}

func (d *DockerDeployer) StartContainer(ctx context.Context, nameOrID string) error {
	cli, err := d.newClient()
	if err != nil {
		return fmt.Errorf("create docker client: %w", err)
	}
	defer cli.Close()

	return cli.ContainerStart(ctx, nameOrID, container.StartOptions{})
}

func (d *DockerDeployer) StopContainer(ctx context.Context, nameOrID string) error {
	cli, err := d.newClient()
	if err != nil {
		return fmt.Errorf("create docker client: %w", err)
	}
	defer cli.Close()

	return cli.ContainerStop(ctx, nameOrID, container.StopOptions{})
}

func (d *DockerDeployer) RemoveContainer(ctx context.Context, nameOrID string) error {
	cli, err := d.newClient()
	if err != nil {
		return fmt.Errorf("create docker client: %w", err)
	}
	defer cli.Close()

	return cli.ContainerRemove(ctx, nameOrID, container.RemoveOptions{Force: true})
}

func (d *DockerDeployer) InspectContainer(ctx context.Context, nameOrID string) (*SlotStatus, error) {
	cli, err := d.newClient()
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	defer cli.Close()

	info, err := cli.ContainerInspect(ctx, nameOrID)
	if err != nil {
		return nil, fmt.Errorf("inspect container %s: %w", nameOrID, err)
	}

	health := "none"
	if info.State.Health != nil {
		health = info.State.Health.Status
	}

	return &SlotStatus{
		ID:      info.ID,
		Name:    info.Name,
		State:   info.State.Status,
		Health:  health,
		Running: info.State.Running,
	}, nil
}

func (d *DockerDeployer) ExecInContainer(ctx context.Context, nameOrID string, cmd []string) (*ExecResult, error) {
	cli, err := d.newClient()
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	defer cli.Close()

	execCfg := container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	}

	execID, err := cli.ContainerExecCreate(ctx, nameOrID, execCfg)
	if err != nil {
		return nil, fmt.Errorf("exec create in %s: %w", nameOrID, err)
	}

	resp, err := cli.ContainerExecAttach(ctx, execID.ID, container.ExecAttachOptions{})
	if err != nil {
		return nil, fmt.Errorf("exec attach in %s: %w", nameOrID, err)
	}
	defer resp.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, resp.Reader); err != nil {
		return nil, fmt.Errorf("exec read output in %s: %w", nameOrID, err)
	}

	inspectResp, err := cli.ContainerExecInspect(ctx, execID.ID)
	if err != nil {
		return nil, fmt.Errorf("exec inspect in %s: %w", nameOrID, err)
	}

	return &ExecResult{
		ExitCode: inspectResp.ExitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}
