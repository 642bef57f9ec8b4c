package api

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicateRoute indicates two peers resolve to the same destination
// address, which would make filter routing ambiguous.
var ErrDuplicateRoute = errors.New("duplicate destination address")

// ConfigurationError reports invalid cluster or topology configuration:
// bad band counts, unresolved interfaces, roster size mismatches,
// malformed link parameters.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.Reason
}

// Configf builds a ConfigurationError from a format string.
func Configf(format string, args ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// CommandError carries the outcome of a failed external invocation.
type CommandError struct {
	Host     string // host the command ran on, empty for this machine
	Cmd      []string
	ExitCode int
	Output   string // captured stdout+stderr, may be empty
}

func (e *CommandError) Error() string {
	host := e.Host
	if host == "" {
		host = "local"
	}
	msg := fmt.Sprintf("command failed on %s (exit %d): %s",
		host, e.ExitCode, strings.Join(e.Cmd, " "))
	if e.Output != "" {
		msg += ": " + strings.TrimSpace(e.Output)
	}
	return msg
}
