package runner

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapArgv(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		want []string
	}{
		{
			name: "plain",
			spec: Spec{Argv: []string{"tc", "qdisc", "show"}},
			want: []string{"tc", "qdisc", "show"},
		},
		{
			name: "sudo",
			spec: Spec{Argv: []string{"tc", "qdisc", "show"}, Sudo: true},
			want: []string{"sudo", "tc", "qdisc", "show"},
		},
		{
			name: "sudo not doubled",
			spec: Spec{Argv: []string{"sudo", "tc", "qdisc", "show"}, Sudo: true},
			want: []string{"sudo", "tc", "qdisc", "show"},
		},
		{
			name: "taskset",
			spec: Spec{Argv: []string{"server"}, CPUList: "0-3"},
			want: []string{"sudo", "taskset", "-c", "0-3", "server"},
		},
		{
			name: "netns strips inner sudo",
			spec: Spec{Argv: []string{"sudo", "tc", "qdisc", "show"}, Netns: "ns0", Sudo: true},
			want: []string{"sudo", "ip", "netns", "exec", "ns0", "tc", "qdisc", "show"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, wrapArgv(tc.spec)); diff != "" {
				t.Fatalf("wrapped argv mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEnvList(t *testing.T) {
	got := envList(map[string]string{"B": "2", "A": "1"})
	assert.Equal(t, []string{"A=1", "B=2"}, got)
	assert.Nil(t, envList(nil))
}

func TestLocalRunCaptures(t *testing.T) {
	proc, err := Local{}.Start(context.Background(), Spec{
		Argv:          []string{"echo", "hello"},
		CaptureStdout: true,
	})
	require.NoError(t, err)

	code, err := proc.Wait()
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "hello", strings.TrimSpace(proc.Output()))
}

func TestLocalNonzeroExit(t *testing.T) {
	proc, err := Local{}.Start(context.Background(), Spec{
		Argv: []string{"sh", "-c", "exit 3"},
	})
	require.NoError(t, err)

	code, err := proc.Wait()
	require.NoError(t, err)
	assert.Equal(t, 3, code)
}
