package shaping

import (
	"context"
	"encoding/binary"
	"fmt"
	"net/netip"
	"path/filepath"
	"strings"

	ns "github.com/containernetworking/plugins/pkg/ns"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"Netshape/api"
)

// Netlink applies shaping natively through rtnetlink, for hosts that
// are this machine. It implements the same replace/add/delete semantics
// as the tc backend: the kernel's EEXIST on qdisc add is exactly the
// occupied-band failure.
type Netlink struct {
	// Netns, when set, is entered for every operation. Either a netns
	// name or a full /proc or /var/run/netns path.
	Netns string
}

func (b *Netlink) do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.Netns == "" {
		return fn()
	}
	path := b.Netns
	if !strings.Contains(path, "/") {
		path = filepath.Join("/var/run/netns", path)
	}
	netns, err := ns.GetNS(path)
	if err != nil {
		return fmt.Errorf("get netns %s: %w", b.Netns, err)
	}
	defer netns.Close()
	return netns.Do(func(_ ns.NetNS) error {
		return fn()
	})
}

func (b *Netlink) BuildRoot(ctx context.Context, dev string, numBands int) error {
	if err := checkNumBands(numBands); err != nil {
		return err
	}
	return b.do(ctx, func() error {
		link, err := netlink.LinkByName(dev)
		if err != nil {
			return fmt.Errorf("link %s: %w", dev, err)
		}
		prio := netlink.NewPrio(netlink.QdiscAttrs{
			LinkIndex: link.Attrs().Index,
			Handle:    netlink.MakeHandle(1, 0),
			Parent:    netlink.HANDLE_ROOT,
		})
		prio.Bands = uint8(numBands)
		if err := netlink.QdiscReplace(prio); err != nil {
			return fmt.Errorf("replace prio root on %s: %w", dev, err)
		}
		return nil
	})
}

func (b *Netlink) AttachBandShaper(ctx context.Context, dev string, band int, p api.LinkParams) error {
	if err := checkBand(band); err != nil {
		return err
	}
	return b.do(ctx, func() error {
		link, err := netlink.LinkByName(dev)
		if err != nil {
			return fmt.Errorf("link %s: %w", dev, err)
		}
		q := newNetemQdisc(netlink.QdiscAttrs{
			LinkIndex: link.Attrs().Index,
			Parent:    netlink.MakeHandle(1, uint16(band)),
			Handle:    netlink.MakeHandle(uint16(band), 0),
		}, p)
		if err := netlink.QdiscAdd(q); err != nil {
			return fmt.Errorf("attach netem under band %d on %s: %w", band, dev, err)
		}
		return nil
	})
}

func (b *Netlink) InstallClassifier(ctx context.Context, dev string, dstAddr string, band int) error {
	if err := checkBand(band); err != nil {
		return err
	}
	dst, err := ipv4Bits(dstAddr)
	if err != nil {
		return err
	}
	return b.do(ctx, func() error {
		link, err := netlink.LinkByName(dev)
		if err != nil {
			return fmt.Errorf("link %s: %w", dev, err)
		}
		filter := &netlink.U32{
			FilterAttrs: netlink.FilterAttrs{
				LinkIndex: link.Attrs().Index,
				Parent:    netlink.MakeHandle(1, 0),
				Priority:  1,
				Protocol:  unix.ETH_P_IP,
			},
			Sel: &netlink.TcU32Sel{
				Keys: []netlink.TcU32Key{{
					Mask: 0xffffffff,
					Val:  dst,
					Off:  16, // dst address offset in the IPv4 header
				}},
				Flags: netlink.TC_U32_TERMINAL,
			},
			ClassId: netlink.MakeHandle(1, uint16(band)),
		}
		if err := netlink.FilterAdd(filter); err != nil {
			return fmt.Errorf("add dst filter %s on %s: %w", dstAddr, dev, err)
		}
		return nil
	})
}

func (b *Netlink) ReplaceRootNetem(ctx context.Context, dev string, p api.LinkParams) error {
	return b.do(ctx, func() error {
		link, err := netlink.LinkByName(dev)
		if err != nil {
			return fmt.Errorf("link %s: %w", dev, err)
		}
		q := newNetemQdisc(netlink.QdiscAttrs{
			LinkIndex: link.Attrs().Index,
			Parent:    netlink.HANDLE_ROOT,
			Handle:    netlink.MakeHandle(1, 0),
		}, p)
		if err := netlink.QdiscReplace(q); err != nil {
			return fmt.Errorf("replace netem root on %s: %w", dev, err)
		}
		return nil
	})
}

func (b *Netlink) ClearRoot(ctx context.Context, dev string) error {
	return b.do(ctx, func() error {
		link, err := netlink.LinkByName(dev)
		if err != nil {
			return fmt.Errorf("link %s: %w", dev, err)
		}
		qdiscs, err := netlink.QdiscList(link)
		if err != nil {
			return fmt.Errorf("list qdiscs on %s: %w", dev, err)
		}
		for _, q := range qdiscs {
			if q.Attrs().Parent != netlink.HANDLE_ROOT {
				continue
			}
			// only remove disciplines this tool installs; deleting the
			// kernel default would just error
			if q.Type() != "prio" && q.Type() != "netem" {
				continue
			}
			if err := netlink.QdiscDel(q); err != nil {
				return fmt.Errorf("delete root on %s: %w", dev, err)
			}
		}
		return nil
	})
}

// newNetemQdisc maps LinkParams onto a netem qdisc with the same
// clause-omission rules as the tc command text: no delay when mean is
// zero, jitter only alongside a delay, rate only when bounded.
func newNetemQdisc(attrs netlink.QdiscAttrs, p api.LinkParams) *netlink.Netem {
	na := netlink.NetemQdiscAttrs{}
	if p.MeanMs > 0 {
		na.Latency = uint32(p.MeanMs * 1000) // microseconds
		if p.JitterMs > 0 {
			na.Jitter = uint32(p.JitterMs * 1000)
		}
	}
	q := netlink.NewNetem(attrs, na)
	if p.RateGbit > 0 {
		// netem rate is bytes per second
		q.Rate64 = uint64(p.RateGbit * (1 << 30) / 8)
	}
	return q
}

func ipv4Bits(addr string) (uint32, error) {
	a, err := netip.ParseAddr(addr)
	if err != nil || !a.Is4() {
		return 0, api.Configf("invalid IPv4 address %q", addr)
	}
	b := a.As4()
	return binary.BigEndian.Uint32(b[:]), nil
}
