package topo

import (
	"context"
	"fmt"
	"strings"

	"github.com/vishvananda/netlink"

	"Netshape/api"
	"Netshape/pkg/runner"
)

// LocalInterface returns this machine's default-route egress interface
// through rtnetlink.
func LocalInterface() (string, error) {
	routes, err := netlink.RouteList(nil, netlink.FAMILY_V4)
	if err != nil {
		return "", fmt.Errorf("list routes: %w", err)
	}
	for _, r := range routes {
		if !isDefaultRoute(r) {
			continue
		}
		link, err := netlink.LinkByIndex(r.LinkIndex)
		if err != nil {
			return "", fmt.Errorf("link for default route: %w", err)
		}
		return link.Attrs().Name, nil
	}
	return "", fmt.Errorf("no IPv4 default route")
}

func isDefaultRoute(r netlink.Route) bool {
	if r.Dst == nil {
		return true
	}
	ones, _ := r.Dst.Mask.Size()
	return ones == 0 && r.Dst.IP.IsUnspecified()
}

// RemoteInterface queries a host's default-route interface by running
// `ip -o -4 route show to default` through the given runner and parsing
// the device field.
func RemoteInterface(ctx context.Context, r runner.Runner, host string) (string, error) {
	argv := []string{"ip", "-o", "-4", "route", "show", "to", "default"}
	proc, err := r.Start(ctx, runner.Spec{
		Argv:          argv,
		CaptureStdout: true,
		CaptureStderr: true,
	})
	if err != nil {
		return "", err
	}
	code, err := proc.Wait()
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", &api.CommandError{
			Host: host, Cmd: argv, ExitCode: code, Output: proc.Output(),
		}
	}

	// "default via 10.0.0.1 dev eth0 proto dhcp ..."
	segs := strings.Fields(strings.TrimSpace(proc.Output()))
	for i, seg := range segs {
		if seg == "dev" && i+1 < len(segs) {
			return segs[i+1], nil
		}
	}
	return "", fmt.Errorf("unexpected route output %q", proc.Output())
}

// defaultResolve covers local hosts out of the box; anything reachable
// only over ssh or docker needs a resolver wired by the caller.
func defaultResolve(ctx context.Context, h api.Host) (string, error) {
	if h.IsLocal() && h.Container == "" {
		return LocalInterface()
	}
	return "", fmt.Errorf("no resolver configured for %s", h.Name)
}
