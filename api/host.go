package api

// Host is one member of the cluster roster.
type Host struct {
	Name string `yaml:"name"`

	// Remote is the "user@domain" ssh target of the host. Empty means
	// the host is this machine.
	Remote string `yaml:"remote"`

	// Addr is the IPv4 address peers use to reach this host. Classifier
	// rules on every peer match against it.
	Addr string `yaml:"addr"`

	// Container, if set, runs shaping commands inside this docker
	// container instead of directly on the machine.
	Container string `yaml:"container"`

	// Netns, if set, scopes shaping commands to this named network
	// namespace on the host.
	Netns string `yaml:"netns"`

	// Dev, if set, bypasses default-route interface resolution. Needed
	// for veth legs inside a netns, where there is no default route to
	// look at.
	Dev string `yaml:"dev"`
}

// IsLocal reports whether the host is this machine rather than an
// ssh target.
func (h Host) IsLocal() bool {
	return h.Remote == ""
}
