package shaping

import (
	"fmt"

	"Netshape/api"
)

// netem queue length used when shaping inside a netns, where the
// default limit stalls high-bandwidth links.
const netnsQlenLimit = 500000000

// netemArgs renders the netem clause list for the given parameters.
// Zero mean drops the delay clause entirely, jitter rides along only
// when there is a delay to jitter, and zero rate leaves the link
// unbounded.
func netemArgs(p api.LinkParams) []string {
	var args []string
	if p.MeanMs > 0 {
		args = append(args, "delay", fmt.Sprintf("%gms", p.MeanMs))
		if p.JitterMs > 0 {
			args = append(args, fmt.Sprintf("%gms", p.JitterMs), "distribution", p.Dist())
		}
	}
	if p.RateGbit > 0 {
		args = append(args, "rate", fmt.Sprintf("%ggibit", p.RateGbit))
	}
	return args
}
