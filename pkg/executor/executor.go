package executor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"Netshape/api"
	"Netshape/pkg/shaping"
	"Netshape/pkg/topo"
)

// Target couples one host with its shaping backend and resolved egress
// device.
type Target struct {
	Host    api.Host
	Dev     string
	Backend shaping.Backend
}

// Result is the outcome of one phase-2 item.
type Result struct {
	Host string
	Op   string // "shaper" or "filter"
	Band int
	Err  error
}

// OK reports whether the item succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Apply deploys the plan across all targets.
//
// Phase 1 dispatches the prio root build to every host concurrently and
// joins at a barrier; any failure aborts the whole run with every
// failing host reported, and no phase-2 work is dispatched. Phase 2
// dispatches every shaper attach and classifier install concurrently;
// items touch disjoint (host, band) resources, so they need no ordering
// among themselves. Per-item failures are collected, never preempting
// siblings already in flight, and the aggregate error joins them.
func Apply(ctx context.Context, targets []Target, plan *topo.Plan) ([]Result, error) {
	byName := make(map[string]Target, len(targets))
	for _, t := range targets {
		byName[t.Host.Name] = t
	}
	for host := range plan.NumBands {
		if _, ok := byName[host]; !ok {
			return nil, api.Configf("plan names host %q with no target", host)
		}
	}

	// phase 1: roots everywhere, then barrier
	var g errgroup.Group
	rootErrs := make([]error, len(targets))
	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			err := t.Backend.BuildRoot(ctx, t.Dev, plan.NumBands[t.Host.Name])
			if err != nil {
				rootErrs[i] = fmt.Errorf("host %s: build root: %w", t.Host.Name, err)
				log.Errorf("  %s: root ERROR: %v", t.Host.Name, err)
			} else {
				log.Infof("  %s: root OK", t.Host.Name)
			}
			return rootErrs[i]
		})
	}
	_ = g.Wait()
	if err := errors.Join(rootErrs...); err != nil {
		return nil, err
	}

	// phase 2: shapers and filters, disjoint resources, no barrier
	items := len(plan.Shapers) + len(plan.Classifiers)
	ch := make(chan Result, items)
	var wg sync.WaitGroup
	for _, s := range plan.Shapers {
		s := s
		t := byName[s.Host]
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := t.Backend.AttachBandShaper(ctx, t.Dev, s.Band, s.Params)
			ch <- Result{Host: s.Host, Op: "shaper", Band: s.Band, Err: err}
		}()
	}
	for _, c := range plan.Classifiers {
		c := c
		t := byName[c.Host]
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := t.Backend.InstallClassifier(ctx, t.Dev, c.DstAddr, c.Band)
			ch <- Result{Host: c.Host, Op: "filter", Band: c.Band, Err: err}
		}()
	}
	wg.Wait()
	close(ch)

	results := make([]Result, 0, items)
	for r := range ch {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Host != b.Host {
			return a.Host < b.Host
		}
		if a.Band != b.Band {
			return a.Band < b.Band
		}
		return a.Op < b.Op
	})

	var itemErrs []error
	for _, r := range results {
		if r.OK() {
			log.Infof("  %s: %s band %d OK", r.Host, r.Op, r.Band)
		} else {
			log.Errorf("  %s: %s band %d ERROR: %v", r.Host, r.Op, r.Band, r.Err)
			itemErrs = append(itemErrs, fmt.Errorf("host %s: %s band %d: %w", r.Host, r.Op, r.Band, r.Err))
		}
	}
	return results, errors.Join(itemErrs...)
}

// Clear removes the root discipline from every target concurrently.
// Failures are logged, never returned: teardown must be safe against
// already-clean hosts.
func Clear(ctx context.Context, targets []Target) {
	var wg sync.WaitGroup
	for _, t := range targets {
		t := t
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := t.Backend.ClearRoot(ctx, t.Dev); err != nil {
				log.Warnf("  %s: clear: %v", t.Host.Name, err)
			} else {
				log.Infof("  %s: clear OK", t.Host.Name)
			}
		}()
	}
	wg.Wait()
}

// ApplyUniform installs a single root netem on every target's main
// device with per-host parameters, then drives the companion ifb leg
// carrying only the rate (or nothing when involveIfb is false).
func ApplyUniform(ctx context.Context, targets []Target, params func(host string) api.LinkParams, involveIfb bool) error {
	legErrs := make([]error, 0, 2*len(targets))

	runLeg := func(dev func(Target) string, p func(Target) api.LinkParams) {
		var wg sync.WaitGroup
		errs := make([]error, len(targets))
		for i, t := range targets {
			i, t := i, t
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := t.Backend.ReplaceRootNetem(ctx, dev(t), p(t))
				if err != nil {
					errs[i] = fmt.Errorf("host %s: netem on %s: %w", t.Host.Name, dev(t), err)
					log.Errorf("  %s: %s ERROR: %v", t.Host.Name, dev(t), err)
				} else {
					log.Infof("  %s: %s OK", t.Host.Name, dev(t))
				}
			}()
		}
		wg.Wait()
		legErrs = append(legErrs, errs...)
	}

	runLeg(
		func(t Target) string { return t.Dev },
		func(t Target) api.LinkParams { return params(t.Host.Name) },
	)
	if involveIfb {
		runLeg(
			func(t Target) string { return shaping.IfbDev },
			func(t Target) api.LinkParams {
				return api.LinkParams{RateGbit: params(t.Host.Name).RateGbit}
			},
		)
	}
	return errors.Join(legErrs...)
}

// ClearUniform tears down both uniform legs on every target; like
// Clear, it only logs failures.
func ClearUniform(ctx context.Context, targets []Target) {
	Clear(ctx, targets)
	ifb := make([]Target, 0, len(targets))
	for _, t := range targets {
		t.Dev = shaping.IfbDev
		ifb = append(ifb, t)
	}
	Clear(ctx, ifb)
}
