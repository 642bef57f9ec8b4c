package api

// DefaultDistribution is the jitter distribution used when a link does
// not name one.
const DefaultDistribution = "pareto"

// LinkParams describes the emulated characteristics of one directed
// src -> dst link. The zero value means an unshaped link: no delay,
// no jitter, unbounded rate.
type LinkParams struct {
	MeanMs       float64 `yaml:"mean"`         // one-way delay in ms
	JitterMs     float64 `yaml:"jitter"`       // delay jitter in ms
	Distribution string  `yaml:"distribution"` // jitter distribution, e.g. pareto
	RateGbit     float64 `yaml:"rate"`         // bandwidth in Gibit/s, 0 = unbounded
}

// Dist returns the jitter distribution, falling back to the default.
func (p LinkParams) Dist() string {
	if p.Distribution == "" {
		return DefaultDistribution
	}
	return p.Distribution
}

// Validate rejects parameter combinations the shaping backends cannot
// express.
func (p LinkParams) Validate() error {
	if p.MeanMs < 0 {
		return Configf("negative mean latency %gms", p.MeanMs)
	}
	if p.JitterMs < 0 {
		return Configf("negative jitter %gms", p.JitterMs)
	}
	if p.RateGbit < 0 {
		return Configf("negative rate %ggibit", p.RateGbit)
	}
	return nil
}

// ShapingRule is the shaping queue a host applies to traffic destined
// for one peer: the netem child sitting under the given prio band.
type ShapingRule struct {
	Host   string
	Band   int
	Params LinkParams
}

// ClassifierRule directs egress traffic matching DstAddr/32 into the
// corresponding band's shaping queue.
type ClassifierRule struct {
	Host    string
	DstAddr string
	Band    int
}
