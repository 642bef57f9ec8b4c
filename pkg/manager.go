package pkg

import (
	"context"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"Netshape/api"
	"Netshape/pkg/executor"
	"Netshape/pkg/runner"
	"Netshape/pkg/shaping"
	"Netshape/pkg/topo"
)

// Options tunes how the manager reaches and shapes hosts.
type Options struct {
	// SSHKeyFile is the private key used for remote hosts.
	SSHKeyFile string

	// Native applies shaping on local hosts through rtnetlink instead
	// of the tc command line.
	Native bool

	// InvolveIfb carries the rate leg on the ifb device in uniform mode.
	InvolveIfb bool
}

// Manager wires the cluster roster, the topology parameters, and the
// per-host execution targets.
type Manager struct {
	desc    *topo.Descriptor
	opts    Options
	runners map[string]runner.Runner
	sshes   []*runner.SSH
}

// NewManager validates the roster, dials every remote host, and builds
// the per-host runners.
func NewManager(hosts []api.Host, params topo.ParamsFunc, opts Options) (*Manager, error) {
	desc, err := topo.NewDescriptor(hosts, params)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		desc:    desc,
		opts:    opts,
		runners: make(map[string]runner.Runner, len(hosts)),
	}
	for _, h := range desc.Hosts() {
		r, err := m.newRunner(h)
		if err != nil {
			m.Close()
			return nil, err
		}
		m.runners[h.Name] = r
	}

	desc.SetResolver(func(ctx context.Context, h api.Host) (string, error) {
		if h.IsLocal() && h.Container == "" {
			return topo.LocalInterface()
		}
		return topo.RemoteInterface(ctx, m.runners[h.Name], h.Name)
	})
	return m, nil
}

func (m *Manager) newRunner(h api.Host) (runner.Runner, error) {
	switch {
	case h.Container != "":
		return runner.NewContainer(h.Container)
	case h.IsLocal():
		return runner.Local{}, nil
	default:
		s, err := runner.NewSSH(h.Remote, m.opts.SSHKeyFile)
		if err != nil {
			return nil, err
		}
		m.sshes = append(m.sshes, s)
		return s, nil
	}
}

// Close shuts down the ssh connections.
func (m *Manager) Close() {
	for _, s := range m.sshes {
		_ = s.Close()
	}
}

// Descriptor exposes the validated topology descriptor.
func (m *Manager) Descriptor() *topo.Descriptor {
	return m.desc
}

func (m *Manager) backend(h api.Host) shaping.Backend {
	if m.opts.Native && h.IsLocal() && h.Container == "" {
		return &shaping.Netlink{Netns: h.Netns}
	}
	return &shaping.TC{Runner: m.runners[h.Name], Host: h.Name, Netns: h.Netns}
}

// targets resolves every host's egress device concurrently and couples
// it with its backend.
func (m *Manager) targets(ctx context.Context) ([]executor.Target, error) {
	hosts := m.desc.Hosts()
	targets := make([]executor.Target, len(hosts))
	var g errgroup.Group
	for i, h := range hosts {
		i, h := i, h
		g.Go(func() error {
			dev, err := m.desc.Dev(ctx, h.Name)
			if err != nil {
				return err
			}
			targets[i] = executor.Target{Host: h, Dev: dev, Backend: m.backend(h)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return targets, nil
}

// Apply builds the per-pair plan and deploys it across the cluster.
func (m *Manager) Apply(ctx context.Context) error {
	plan, err := m.desc.Plan()
	if err != nil {
		return err
	}
	targets, err := m.targets(ctx)
	if err != nil {
		return err
	}
	log.Infof("applying topology to %d hosts", len(targets))
	_, err = executor.Apply(ctx, targets, plan)
	return err
}

// ApplyUniform shapes every host's whole egress with one netem, the
// same parameters everywhere regardless of destination.
func (m *Manager) ApplyUniform(ctx context.Context, p api.LinkParams) error {
	if err := p.Validate(); err != nil {
		return err
	}
	targets, err := m.targets(ctx)
	if err != nil {
		return err
	}
	log.Infof("applying uniform netem to %d hosts", len(targets))
	return executor.ApplyUniform(ctx, targets,
		func(string) api.LinkParams { return p }, m.opts.InvolveIfb)
}

// Clear tears the shaping down everywhere, best effort. Hosts whose
// interface cannot be resolved are logged and skipped; nothing is ever
// raised so that teardown works against partially-applied state.
func (m *Manager) Clear(ctx context.Context, uniform bool) {
	hosts := m.desc.Hosts()
	targets := make([]executor.Target, 0, len(hosts))
	for _, h := range hosts {
		dev, err := m.desc.Dev(ctx, h.Name)
		if err != nil {
			log.Warnf("  %s: skipping clear: %v", h.Name, err)
			continue
		}
		targets = append(targets, executor.Target{Host: h, Dev: dev, Backend: m.backend(h)})
	}
	if uniform {
		executor.ClearUniform(ctx, targets)
		return
	}
	executor.Clear(ctx, targets)
}
