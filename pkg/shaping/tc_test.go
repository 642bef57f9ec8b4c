package shaping

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Netshape/api"
	"Netshape/pkg/runner"
)

func TestNetemArgs(t *testing.T) {
	tests := []struct {
		name string
		p    api.LinkParams
		want []string
	}{
		{
			name: "delay jitter rate",
			p:    api.LinkParams{MeanMs: 50, JitterMs: 10, RateGbit: 1},
			want: []string{"delay", "50ms", "10ms", "distribution", "pareto", "rate", "1gibit"},
		},
		{
			name: "zero mean drops delay and jitter",
			p:    api.LinkParams{MeanMs: 0, JitterMs: 10, RateGbit: 5},
			want: []string{"rate", "5gibit"},
		},
		{
			name: "zero jitter drops distribution",
			p:    api.LinkParams{MeanMs: 20, RateGbit: 2},
			want: []string{"delay", "20ms", "rate", "2gibit"},
		},
		{
			name: "zero rate unbounded",
			p:    api.LinkParams{MeanMs: 20, JitterMs: 5},
			want: []string{"delay", "20ms", "5ms", "distribution", "pareto"},
		},
		{
			name: "custom distribution",
			p:    api.LinkParams{MeanMs: 20, JitterMs: 5, Distribution: "normal"},
			want: []string{"delay", "20ms", "5ms", "distribution", "normal"},
		},
		{
			name: "everything zero",
			p:    api.LinkParams{},
			want: nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, netemArgs(tc.p)); diff != "" {
				t.Fatalf("netem args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRootArgs(t *testing.T) {
	want := []string{"tc", "qdisc", "replace", "dev", "eth0", "root", "handle", "1:", "prio", "bands", "5"}
	if diff := cmp.Diff(want, rootArgs("eth0", 5)); diff != "" {
		t.Fatalf("root args mismatch (-want +got):\n%s", diff)
	}
}

func TestBandShaperArgs(t *testing.T) {
	got := bandShaperArgs("eth0", 4, api.LinkParams{MeanMs: 10})
	want := []string{
		"tc", "qdisc", "add", "dev", "eth0",
		"parent", "1:4", "handle", "40:", "netem", "delay", "10ms",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("band shaper args mismatch (-want +got):\n%s", diff)
	}
}

func TestClassifierArgs(t *testing.T) {
	got := classifierArgs("eth0", "10.0.0.2", 5)
	want := []string{
		"tc", "filter", "add", "dev", "eth0",
		"protocol", "ip", "parent", "1:0", "prio", "1",
		"u32", "match", "ip", "dst", "10.0.0.2/32",
		"flowid", "1:5",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("classifier args mismatch (-want +got):\n%s", diff)
	}
}

func TestRootNetemArgsNetnsLimit(t *testing.T) {
	got := rootNetemArgs("veth0", api.LinkParams{MeanMs: 5}, true)
	assert.Contains(t, got, "limit")
	got = rootNetemArgs("eth0", api.LinkParams{MeanMs: 5}, false)
	assert.NotContains(t, got, "limit")
}

func TestClearArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"tc", "qdisc", "delete", "dev", "eth0", "root"},
		clearArgs("eth0", false))
	// the ifb companion gets parked, not deleted
	assert.Equal(t,
		[]string{"tc", "qdisc", "replace", "dev", "ifbe", "root", "noqueue"},
		clearArgs(IfbDev, false))
}

// fakeRunner records specs and plays back a scripted exit code.
type fakeRunner struct {
	specs    []runner.Spec
	exitCode int
	output   string
}

type fakeProc struct {
	code   int
	output string
}

func (p *fakeProc) Wait() (int, error) { return p.code, nil }
func (p *fakeProc) Output() string     { return p.output }

func (f *fakeRunner) Start(ctx context.Context, spec runner.Spec) (runner.Proc, error) {
	f.specs = append(f.specs, spec)
	return &fakeProc{code: f.exitCode, output: f.output}, nil
}

func TestTCRunsElevatedWithCapture(t *testing.T) {
	f := &fakeRunner{}
	tc := &TC{Runner: f, Host: "host0", Netns: "ns0"}
	require.NoError(t, tc.BuildRoot(context.Background(), "eth0", 5))

	require.Len(t, f.specs, 1)
	spec := f.specs[0]
	assert.True(t, spec.Sudo)
	assert.Equal(t, "ns0", spec.Netns)
	assert.True(t, spec.CaptureStdout)
	assert.True(t, spec.CaptureStderr)
}

func TestTCCommandError(t *testing.T) {
	f := &fakeRunner{exitCode: 2, output: "RTNETLINK answers: Operation not permitted"}
	tc := &TC{Runner: f, Host: "host1"}
	err := tc.AttachBandShaper(context.Background(), "eth0", 4, api.LinkParams{})

	var cmdErr *api.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "host1", cmdErr.Host)
	assert.Equal(t, 2, cmdErr.ExitCode)
	assert.Contains(t, cmdErr.Output, "not permitted")
}

func TestBandRangeChecks(t *testing.T) {
	tc := &TC{Runner: &fakeRunner{}}
	ctx := context.Background()

	var cfgErr *api.ConfigurationError
	require.True(t, errors.As(tc.BuildRoot(ctx, "eth0", 3), &cfgErr))
	require.True(t, errors.As(tc.BuildRoot(ctx, "eth0", 17), &cfgErr))
	require.True(t, errors.As(tc.AttachBandShaper(ctx, "eth0", 2, api.LinkParams{}), &cfgErr))
	require.True(t, errors.As(tc.InstallClassifier(ctx, "eth0", "10.0.0.1", 17), &cfgErr))
	require.NoError(t, tc.BuildRoot(ctx, "eth0", 4))
}
