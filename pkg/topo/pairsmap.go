package topo

import (
	"Netshape/api"
)

type pairKey struct {
	a, b string
}

func keyOf(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a, b}
}

// PairsMap holds per-unordered-pair link parameters with an optional
// default, for latency matrices that need not be fully specified.
// Parameters apply to both directions of a pair; feed two maps into
// Asym to build a truly asymmetric matrix.
type PairsMap struct {
	pairs map[pairKey]api.LinkParams
	def   *api.LinkParams
}

// NewPairsMap builds an empty map with an optional default entry.
func NewPairsMap(def *api.LinkParams) *PairsMap {
	return &PairsMap{pairs: make(map[pairKey]api.LinkParams), def: def}
}

// Set records the parameters of the unordered pair {a, b}. Setting the
// same pair twice is a configuration error.
func (m *PairsMap) Set(a, b string, p api.LinkParams) error {
	if a == b {
		return api.Configf("pair %q-%q is a self link", a, b)
	}
	key := keyOf(a, b)
	if _, ok := m.pairs[key]; ok {
		return api.Configf("duplicate pair %q-%q", a, b)
	}
	m.pairs[key] = p
	return nil
}

// Get returns the parameters for {a, b}, falling back to the default.
func (m *PairsMap) Get(a, b string) (api.LinkParams, bool) {
	if p, ok := m.pairs[keyOf(a, b)]; ok {
		return p, true
	}
	if m.def != nil {
		return *m.def, true
	}
	return api.LinkParams{}, false
}

// Halved returns a copy with mean and jitter cut in half, turning RTT
// figures into the per-direction delays netem wants.
func (m *PairsMap) Halved() *PairsMap {
	out := NewPairsMap(nil)
	if m.def != nil {
		d := *m.def
		d.MeanMs /= 2
		d.JitterMs /= 2
		out.def = &d
	}
	for k, p := range m.pairs {
		p.MeanMs /= 2
		p.JitterMs /= 2
		out.pairs[k] = p
	}
	return out
}

// Func adapts the map into a ParamsFunc. Pairs missing from the map
// with no default present are a configuration error.
func (m *PairsMap) Func() ParamsFunc {
	return func(src, dst string) (api.LinkParams, error) {
		p, ok := m.Get(src, dst)
		if !ok {
			return api.LinkParams{}, api.Configf("no parameters for pair %q-%q and no default", src, dst)
		}
		return p, nil
	}
}
