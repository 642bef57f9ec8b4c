package topo

import (
	"context"
	"fmt"
	"net/netip"
	"sort"
	"sync"

	"Netshape/api"
)

// bands 1-3 of every prio root carry default and control traffic; peer
// bands start right after them.
const (
	ReservedBands = 3
	FirstPeerBand = ReservedBands + 1
)

// ParamsFunc yields the link parameters for one directed src -> dst
// pair of host names.
type ParamsFunc func(src, dst string) (api.LinkParams, error)

// Uniform returns a ParamsFunc applying the same parameters to every
// pair.
func Uniform(p api.LinkParams) ParamsFunc {
	return func(src, dst string) (api.LinkParams, error) {
		return p, nil
	}
}

// Descriptor holds the validated cluster roster, the pairwise link
// parameter function, and per-host resolved interface names. Interface
// lookups are memoized on the descriptor itself so the subsystem stays
// reentrant.
type Descriptor struct {
	hosts  []api.Host // sorted by name
	params ParamsFunc

	// Resolve maps a host to its default-route interface name. Set by
	// the caller; defaults to the netlink/ip-route resolver.
	resolve func(ctx context.Context, h api.Host) (string, error)

	mu   sync.Mutex
	devs map[string]string
}

// NewDescriptor validates the roster and builds a descriptor. Host
// names must be unique, every host needs a parseable IPv4 address, and
// no two hosts may share one.
func NewDescriptor(hosts []api.Host, params ParamsFunc) (*Descriptor, error) {
	if len(hosts) < 2 {
		return nil, api.Configf("need at least 2 hosts, got %d", len(hosts))
	}

	sorted := append([]api.Host(nil), hosts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	seenName := make(map[string]bool, len(sorted))
	seenAddr := make(map[string]string, len(sorted))
	for _, h := range sorted {
		if h.Name == "" {
			return nil, api.Configf("host with empty name")
		}
		if seenName[h.Name] {
			return nil, api.Configf("duplicate host name %q", h.Name)
		}
		seenName[h.Name] = true

		addr, err := netip.ParseAddr(h.Addr)
		if err != nil || !addr.Is4() {
			return nil, api.Configf("host %s: invalid IPv4 address %q", h.Name, h.Addr)
		}
		if other, ok := seenAddr[h.Addr]; ok {
			return nil, fmt.Errorf("%w: %s shared by %s and %s",
				api.ErrDuplicateRoute, h.Addr, other, h.Name)
		}
		seenAddr[h.Addr] = h.Name
	}

	d := &Descriptor{
		hosts:  sorted,
		params: params,
		devs:   make(map[string]string),
	}
	d.resolve = defaultResolve
	return d, nil
}

// SetResolver overrides how interface names are looked up.
func (d *Descriptor) SetResolver(f func(ctx context.Context, h api.Host) (string, error)) {
	d.resolve = f
}

// Hosts returns the roster in sorted name order.
func (d *Descriptor) Hosts() []api.Host {
	return d.hosts
}

// Host returns the roster entry for name.
func (d *Descriptor) Host(name string) (api.Host, bool) {
	for _, h := range d.hosts {
		if h.Name == name {
			return h, true
		}
	}
	return api.Host{}, false
}

// Peers returns host's peers in sorted identifier order.
func (d *Descriptor) Peers(host string) []string {
	peers := make([]string, 0, len(d.hosts)-1)
	for _, h := range d.hosts {
		if h.Name != host {
			peers = append(peers, h.Name)
		}
	}
	return peers
}

// NumBands is the prio band count of host's root: the reserved bands
// plus one per peer.
func (d *Descriptor) NumBands(host string) int {
	return ReservedBands + len(d.Peers(host))
}

// Band returns the band carrying host's traffic towards peer. The
// assignment is a bijection from sorted peer order onto
// FirstPeerBand..NumBands, stable across runs.
func (d *Descriptor) Band(host, peer string) (int, error) {
	if host == peer {
		return 0, api.Configf("no band for %s towards itself", host)
	}
	for i, p := range d.Peers(host) {
		if p == peer {
			return FirstPeerBand + i, nil
		}
	}
	return 0, api.Configf("unknown peer %q for host %q", peer, host)
}

// Dev resolves host's default-route interface, memoizing the result.
func (d *Descriptor) Dev(ctx context.Context, host string) (string, error) {
	h, ok := d.Host(host)
	if !ok {
		return "", api.Configf("unknown host %q", host)
	}
	if h.Dev != "" {
		return h.Dev, nil
	}

	d.mu.Lock()
	dev, ok := d.devs[host]
	d.mu.Unlock()
	if ok {
		return dev, nil
	}

	dev, err := d.resolve(ctx, h)
	if err != nil {
		return "", api.Configf("resolve interface of %s: %v", host, err)
	}

	d.mu.Lock()
	d.devs[host] = dev
	d.mu.Unlock()
	return dev, nil
}

// Plan is the full set of rules an apply run installs, plus the band
// count of each host's root.
type Plan struct {
	NumBands    map[string]int
	Shapers     []api.ShapingRule
	Classifiers []api.ClassifierRule
}

// Plan derives one ShapingRule and one ClassifierRule per ordered
// (host, peer) pair with host != peer.
func (d *Descriptor) Plan() (*Plan, error) {
	plan := &Plan{NumBands: make(map[string]int, len(d.hosts))}
	for _, h := range d.hosts {
		plan.NumBands[h.Name] = d.NumBands(h.Name)
		for _, peer := range d.Peers(h.Name) {
			band, err := d.Band(h.Name, peer)
			if err != nil {
				return nil, err
			}
			p, err := d.params(h.Name, peer)
			if err != nil {
				return nil, err
			}
			if err := p.Validate(); err != nil {
				return nil, fmt.Errorf("link %s -> %s: %w", h.Name, peer, err)
			}
			peerHost, _ := d.Host(peer)
			plan.Shapers = append(plan.Shapers, api.ShapingRule{
				Host: h.Name, Band: band, Params: p,
			})
			plan.Classifiers = append(plan.Classifiers, api.ClassifierRule{
				Host: h.Name, DstAddr: peerHost.Addr, Band: band,
			})
		}
	}
	return plan, nil
}
