package shaping

import (
	"context"
	"fmt"
	"strconv"

	"Netshape/api"
	"Netshape/pkg/runner"
)

// TC shapes through the tc command line dispatched over a Runner, so it
// works the same against this machine, an ssh remote, or a container.
type TC struct {
	Runner runner.Runner

	// Host names the target in errors and logs.
	Host string

	// Netns scopes every tc invocation to a named network namespace.
	Netns string
}

func (t *TC) run(ctx context.Context, argv []string) error {
	proc, err := t.Runner.Start(ctx, runner.Spec{
		Argv:          argv,
		Sudo:          true,
		Netns:         t.Netns,
		CaptureStdout: true,
		CaptureStderr: true,
	})
	if err != nil {
		return err
	}
	code, err := proc.Wait()
	if err != nil {
		return err
	}
	if code != 0 {
		return &api.CommandError{
			Host: t.Host, Cmd: argv, ExitCode: code, Output: proc.Output(),
		}
	}
	return nil
}

func (t *TC) BuildRoot(ctx context.Context, dev string, numBands int) error {
	if err := checkNumBands(numBands); err != nil {
		return err
	}
	return t.run(ctx, rootArgs(dev, numBands))
}

func (t *TC) AttachBandShaper(ctx context.Context, dev string, band int, p api.LinkParams) error {
	if err := checkBand(band); err != nil {
		return err
	}
	return t.run(ctx, bandShaperArgs(dev, band, p))
}

func (t *TC) InstallClassifier(ctx context.Context, dev string, dstAddr string, band int) error {
	if err := checkBand(band); err != nil {
		return err
	}
	return t.run(ctx, classifierArgs(dev, dstAddr, band))
}

func (t *TC) ReplaceRootNetem(ctx context.Context, dev string, p api.LinkParams) error {
	return t.run(ctx, rootNetemArgs(dev, p, t.Netns != ""))
}

func (t *TC) ClearRoot(ctx context.Context, dev string) error {
	return t.run(ctx, clearArgs(dev, t.Netns != ""))
}

// tc qdisc replace dev eth0 root handle 1: prio bands N
func rootArgs(dev string, numBands int) []string {
	return []string{
		"tc", "qdisc", "replace", "dev", dev,
		"root", "handle", "1:", "prio", "bands", strconv.Itoa(numBands),
	}
}

// tc qdisc add dev eth0 parent 1:B handle B0: netem ...
func bandShaperArgs(dev string, band int, p api.LinkParams) []string {
	args := []string{
		"tc", "qdisc", "add", "dev", dev,
		"parent", fmt.Sprintf("1:%d", band),
		"handle", fmt.Sprintf("%d0:", band),
		"netem",
	}
	return append(args, netemArgs(p)...)
}

// tc filter add dev eth0 protocol ip parent 1:0 prio 1 u32
//   match ip dst A/32 flowid 1:B
// One priority level for every filter: /32 destination matches are
// mutually exclusive.
func classifierArgs(dev, dstAddr string, band int) []string {
	return []string{
		"tc", "filter", "add", "dev", dev,
		"protocol", "ip", "parent", "1:0", "prio", "1",
		"u32", "match", "ip", "dst", dstAddr + "/32",
		"flowid", fmt.Sprintf("1:%d", band),
	}
}

// tc qdisc replace dev eth0 root netem ...
func rootNetemArgs(dev string, p api.LinkParams, inNetns bool) []string {
	args := []string{"tc", "qdisc", "replace", "dev", dev, "root", "netem"}
	args = append(args, netemArgs(p)...)
	if inNetns {
		args = append(args, "limit", strconv.Itoa(netnsQlenLimit))
	}
	return args
}

// tc qdisc delete dev eth0 root, except the ifb companion which gets
// parked on noqueue instead of deleted.
func clearArgs(dev string, inNetns bool) []string {
	if dev == IfbDev && !inNetns {
		return []string{"tc", "qdisc", "replace", "dev", dev, "root", "noqueue"}
	}
	return []string{"tc", "qdisc", "delete", "dev", dev, "root"}
}
