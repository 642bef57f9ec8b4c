package runner

import (
	"bytes"
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// Container runs commands inside a running docker container, for
// clusters whose replicas live in containers on this machine. Commands
// execute as the container's root user, so no sudo wrapping is applied.
type Container struct {
	cli  *client.Client
	name string
}

// NewContainer builds a runner targeting the named container using the
// environment's docker endpoint.
func NewContainer(name string) (*Container, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &Container{cli: cli, name: name}, nil
}

type containerProc struct {
	cli    *client.Client
	ctx    context.Context
	execID string
	stdout bytes.Buffer
	stderr bytes.Buffer
	drain  chan error
}

func (c *Container) Start(ctx context.Context, spec Spec) (Proc, error) {
	argv := spec.Argv
	if spec.Netns != "" {
		argv = append([]string{"ip", "netns", "exec", spec.Netns}, argv...)
	}

	resp, err := c.cli.ContainerExecCreate(ctx, c.name, container.ExecOptions{
		Cmd:          argv,
		Env:          envList(spec.Env),
		WorkingDir:   spec.Dir,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, fmt.Errorf("exec create in %s: %w", c.name, err)
	}

	attach, err := c.cli.ContainerExecAttach(ctx, resp.ID, container.ExecAttachOptions{})
	if err != nil {
		return nil, fmt.Errorf("exec attach in %s: %w", c.name, err)
	}

	p := &containerProc{
		cli:    c.cli,
		ctx:    ctx,
		execID: resp.ID,
		drain:  make(chan error, 1),
	}
	go func() {
		_, err := stdcopy.StdCopy(&p.stdout, &p.stderr, attach.Reader)
		attach.Close()
		p.drain <- err
	}()
	return p, nil
}

func (p *containerProc) Wait() (int, error) {
	select {
	case <-p.ctx.Done():
		return -1, p.ctx.Err()
	case err := <-p.drain:
		if err != nil {
			return -1, err
		}
	}
	inspect, err := p.cli.ContainerExecInspect(p.ctx, p.execID)
	if err != nil {
		return -1, err
	}
	return inspect.ExitCode, nil
}

func (p *containerProc) Output() string {
	return p.stdout.String() + p.stderr.String()
}
