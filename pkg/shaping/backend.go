package shaping

import (
	"context"

	"Netshape/api"
)

// tc prio caps the number of output bands.
const maxBands = 16

// IfbDev is the companion egress device carrying the rate-only leg of
// uniform shaping setups.
const IfbDev = "ifbe"

// Backend applies shaping primitives to one host's interfaces. A
// backend instance is bound to a single host; implementations exist for
// tc-over-runner (local, ssh, container) and native netlink.
type Backend interface {
	// BuildRoot installs or replaces the prio root with the given band
	// count. Replace semantics: safe to call repeatedly without
	// accumulating state.
	BuildRoot(ctx context.Context, dev string, numBands int) error

	// AttachBandShaper adds the netem child under the given band. Add
	// semantics: fails if the band already carries a shaper, so
	// configuration drift surfaces instead of being overwritten.
	AttachBandShaper(ctx context.Context, dev string, band int, p api.LinkParams) error

	// InstallClassifier steers egress traffic destined to dstAddr/32
	// into the given band. The band's shaper must already exist.
	InstallClassifier(ctx context.Context, dev string, dstAddr string, band int) error

	// ReplaceRootNetem installs or replaces a single netem at the root,
	// shaping all egress uniformly.
	ReplaceRootNetem(ctx context.Context, dev string, p api.LinkParams) error

	// ClearRoot removes the root discipline and everything under it.
	// Callers treat failures as non-fatal; an already-clean interface
	// is fine.
	ClearRoot(ctx context.Context, dev string) error
}

func checkNumBands(numBands int) error {
	if numBands <= 3 || numBands > maxBands {
		return api.Configf("prio band count %d out of range (4..%d)", numBands, maxBands)
	}
	return nil
}

func checkBand(band int) error {
	if band <= 3 || band > maxBands {
		return api.Configf("peer band %d out of range (4..%d)", band, maxBands)
	}
	return nil
}
