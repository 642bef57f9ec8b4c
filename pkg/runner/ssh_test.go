package runner

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTarget(t *testing.T) {
	user, domain, err := SplitTarget("smr@host0.example.org")
	require.NoError(t, err)
	assert.Equal(t, "smr", user)
	assert.Equal(t, "host0.example.org", domain)

	for _, bad := range []string{"", "nouser", "@domain", "user@", "a@b@c"} {
		_, _, err := SplitTarget(bad)
		assert.Error(t, err, "target %q", bad)
	}
}

func TestReEscapeQuotes(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want []string
	}{
		{
			name: "config blob",
			argv: []string{"server", "--config", "a='x'+b='y'"},
			want: []string{"server", "--config", `a=\'x\'+b=\'y\'`},
		},
		{
			name: "params blob",
			argv: []string{"client", "--params", "mode='f'"},
			want: []string{"client", "--params", `mode=\'f\'`},
		},
		{
			name: "only the value after the flag",
			argv: []string{"--config", "k='v'", "k2='v2'"},
			want: []string{"--config", `k=\'v\'`, "k2='v2'"},
		},
		{
			name: "other flags untouched",
			argv: []string{"--output", "it's", "--config", "k='v'"},
			want: []string{"--output", "it's", "--config", `k=\'v\'`},
		},
		{
			name: "no flags",
			argv: []string{"tc", "qdisc", "show"},
			want: []string{"tc", "qdisc", "show"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, ReEscapeQuotes(tc.argv)); diff != "" {
				t.Fatalf("escape mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReEscapeQuotesDeterministic(t *testing.T) {
	argv := []string{"server", "--config", "a='x'"}
	first := ReEscapeQuotes(argv)
	second := ReEscapeQuotes(argv)
	assert.Equal(t, first, second)
	// input untouched
	assert.Equal(t, "a='x'", argv[2])
}

func TestBuildRemoteCommand(t *testing.T) {
	line := buildRemoteCommand(Spec{
		Argv: []string{"tc", "qdisc", "show"},
		Sudo: true,
	})
	assert.Equal(t, ". ~/.profile; sudo tc qdisc show", line)

	line = buildRemoteCommand(Spec{
		Argv: []string{"./server"},
		Dir:  "/home/smr/repo",
		Env:  map[string]string{"RUST_LOG": "info"},
	})
	assert.Equal(t, ". ~/.profile; cd /home/smr/repo; RUST_LOG=info ./server", line)
}
