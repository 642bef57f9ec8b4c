package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigf(t *testing.T) {
	err := Configf("band %d out of range", 17)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "configuration: band 17 out of range", err.Error())
}

func TestDuplicateRouteWrapping(t *testing.T) {
	err := fmt.Errorf("%w: 10.0.0.1 shared by host0 and host1", ErrDuplicateRoute)
	assert.True(t, errors.Is(err, ErrDuplicateRoute))
}

func TestCommandErrorMessage(t *testing.T) {
	err := &CommandError{
		Host:     "host1",
		Cmd:      []string{"tc", "qdisc", "show"},
		ExitCode: 2,
		Output:   "RTNETLINK answers: Operation not permitted\n",
	}
	assert.Contains(t, err.Error(), "host1")
	assert.Contains(t, err.Error(), "exit 2")
	assert.Contains(t, err.Error(), "tc qdisc show")
	assert.Contains(t, err.Error(), "not permitted")

	local := &CommandError{Cmd: []string{"tc"}, ExitCode: 1}
	assert.Contains(t, local.Error(), "local")
}
