package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
)

// Local runs commands on this machine.
type Local struct{}

type localProc struct {
	cmd *exec.Cmd
	buf *bytes.Buffer
}

func (l Local) Start(ctx context.Context, spec Spec) (Proc, error) {
	argv := wrapArgv(spec)
	if len(argv) == 0 {
		return nil, errors.New("runner: empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), envList(spec.Env)...)

	p := &localProc{cmd: cmd, buf: &bytes.Buffer{}}
	if spec.CaptureStdout {
		cmd.Stdout = p.buf
	}
	if spec.CaptureStderr {
		cmd.Stderr = p.buf
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *localProc) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

func (p *localProc) Output() string {
	return p.buf.String()
}
