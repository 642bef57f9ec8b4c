package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

const sshDialTimeout = 10 * time.Second

// SSH runs commands on a remote host, one session per command. The
// remote shell sources ~/.profile before the command so that PATH and
// friends match an interactive login.
type SSH struct {
	target string
	client *ssh.Client
}

// SplitTarget splits a "user@domain" remote descriptor.
func SplitTarget(target string) (user, domain string, err error) {
	segs := strings.Split(strings.TrimSpace(target), "@")
	if len(segs) != 2 || segs[0] == "" || segs[1] == "" {
		return "", "", fmt.Errorf("invalid remote string %q", target)
	}
	return segs[0], segs[1], nil
}

// NewSSH dials the given "user@domain" target authenticating with the
// private key at keyFile. Host keys are not checked, matching the
// StrictHostKeyChecking=no setup these experiment clusters run with.
func NewSSH(target, keyFile string) (*SSH, error) {
	user, domain, err := SplitTarget(target)
	if err != nil {
		return nil, err
	}
	key, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("read ssh key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("parse ssh key: %w", err)
	}

	cfg := &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         sshDialTimeout,
	}
	client, err := ssh.Dial("tcp", net.JoinHostPort(domain, "22"), cfg)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return &SSH{target: target, client: client}, nil
}

// Target returns the "user@domain" descriptor this runner dials.
func (s *SSH) Target() string {
	return s.target
}

// Close shuts down the underlying connection.
func (s *SSH) Close() error {
	return s.client.Close()
}

type sshProc struct {
	session *ssh.Session
	buf     *bytes.Buffer
	stop    func() bool
}

func (s *SSH) Start(ctx context.Context, spec Spec) (Proc, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("session on %s: %w", s.target, err)
	}

	p := &sshProc{session: session, buf: &bytes.Buffer{}}
	if spec.CaptureStdout {
		session.Stdout = p.buf
	}
	if spec.CaptureStderr {
		session.Stderr = p.buf
	}

	if err := session.Start(buildRemoteCommand(spec)); err != nil {
		session.Close()
		return nil, fmt.Errorf("start on %s: %w", s.target, err)
	}

	// Kill the remote command if the context goes away first.
	p.stop = context.AfterFunc(ctx, func() {
		_ = session.Signal(ssh.SIGKILL)
		session.Close()
	})

	return p, nil
}

func (p *sshProc) Wait() (int, error) {
	err := p.session.Wait()
	p.stop()
	p.session.Close()
	if err == nil {
		return 0, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus(), nil
	}
	return -1, err
}

func (p *sshProc) Output() string {
	return p.buf.String()
}

// buildRemoteCommand renders a Spec as the single shell line handed to
// the remote side.
func buildRemoteCommand(spec Spec) string {
	argv := ReEscapeQuotes(wrapArgv(spec))
	line := strings.Join(argv, " ")
	if assigns := envList(spec.Env); len(assigns) > 0 {
		line = strings.Join(assigns, " ") + " " + line
	}
	if spec.Dir != "" {
		return fmt.Sprintf(". ~/.profile; cd %s; %s", spec.Dir, line)
	}
	return ". ~/.profile; " + line
}

// ReEscapeQuotes re-escapes single quotes inside values that follow
// --config or --params flags. Those values are key=value+key=value blobs
// whose quoting the remote shell would otherwise eat when the command
// line crosses the ssh boundary.
func ReEscapeQuotes(argv []string) []string {
	out := append([]string(nil), argv...)
	inBlob := false
	for i, seg := range out {
		switch {
		case strings.HasPrefix(seg, "--"):
			trimmed := strings.TrimSpace(seg)
			inBlob = trimmed == "--config" || trimmed == "--params"
		case inBlob:
			out[i] = strings.Join(strings.Split(seg, "'"), `\'`)
			inBlob = false
		}
	}
	return out
}
