package runner

import (
	"context"
	"sort"
)

// Spec describes one external command invocation.
type Spec struct {
	Argv []string
	Dir  string
	Env  map[string]string

	// Sudo elevates the command unless netns wrapping already does.
	Sudo bool

	// CPUList restricts the command to a taskset cpu list such as "0-3".
	CPUList string

	// Netns runs the command inside the named network namespace.
	Netns string

	CaptureStdout bool
	CaptureStderr bool
}

// Proc is the asynchronous handle of a dispatched command.
type Proc interface {
	// Wait blocks until the command finishes and returns its exit code.
	Wait() (int, error)

	// Output returns whatever stdout/stderr was captured so far. Only
	// meaningful after Wait and when capture was requested.
	Output() string
}

// Runner dispatches commands against one execution target: this
// machine, an ssh remote, or a running container.
type Runner interface {
	Start(ctx context.Context, spec Spec) (Proc, error)
}

// wrapArgv applies taskset, netns and sudo wrapping. Netns entry strips
// any inner sudo since the whole command line is elevated as one.
func wrapArgv(spec Spec) []string {
	argv := append([]string(nil), spec.Argv...)
	if spec.CPUList != "" {
		argv = append([]string{"sudo", "taskset", "-c", spec.CPUList}, argv...)
	}
	if spec.Netns != "" {
		inner := make([]string, 0, len(argv))
		for _, seg := range argv {
			if seg != "sudo" {
				inner = append(inner, seg)
			}
		}
		return append([]string{"sudo", "ip", "netns", "exec", spec.Netns}, inner...)
	}
	if spec.Sudo && len(argv) > 0 && argv[0] != "sudo" {
		argv = append([]string{"sudo"}, argv...)
	}
	return argv
}

// envList renders an env map as KEY=VALUE assignments in sorted order.
func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	assigns := make([]string, 0, len(keys))
	for _, k := range keys {
		assigns = append(assigns, k+"="+env[k])
	}
	return assigns
}
