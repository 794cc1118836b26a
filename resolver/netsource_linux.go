//go:build linux

// File: resolver/netsource_linux.go
// Author: momentics <momentics@gmail.com>
//
// ProcNetSource implements api.NetlinkSource by parsing /proc/net/arp and
// /proc/net/route, a dependency-free stand-in for a full netlink reader
// — spec §1 treats the kernel-table scraper itself as an external
// collaborator, so this is one concrete, swappable provider of it.

package resolver

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/momentics/xdpnet/api"
)

// arpFlagComplete is ATF_COM in linux/if_arp.h: the entry carries a
// resolved hardware address rather than being mid-probe.
const arpFlagComplete = 0x2

// ProcNetSource reads the current host's neighbor and routing tables
// from procfs.
type ProcNetSource struct {
	Ifindex int
}

var _ api.NetlinkSource = (*ProcNetSource)(nil)

// DumpNeigh parses /proc/net/arp.
func (p *ProcNetSource) DumpNeigh() (map[uint32]api.NeighEntry, error) {
	f, err := os.Open("/proc/net/arp")
	if err != nil {
		return nil, fmt.Errorf("resolver: open /proc/net/arp: %w", err)
	}
	defer f.Close()

	out := make(map[uint32]api.NeighEntry)
	sc := bufio.NewScanner(f)
	sc.Scan() // header line
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 6 {
			continue
		}
		ip := net.ParseIP(fields[0]).To4()
		if ip == nil {
			continue
		}
		flags, err := strconv.ParseUint(strings.TrimPrefix(fields[2], "0x"), 16, 32)
		if err != nil {
			continue
		}
		var mac api.MAC
		hw := fields[3]
		if hwBytes, err := net.ParseMAC(hw); err == nil && len(hwBytes) == 6 {
			copy(mac[:], hwBytes)
		}
		out[be32(ip)] = api.NeighEntry{
			MAC:     mac,
			Ifindex: p.Ifindex,
			Pending: flags&arpFlagComplete == 0,
		}
	}
	return out, sc.Err()
}

// DumpRoutes parses /proc/net/route.
func (p *ProcNetSource) DumpRoutes() ([]api.RouteEntry, error) {
	f, err := os.Open("/proc/net/route")
	if err != nil {
		return nil, fmt.Errorf("resolver: open /proc/net/route: %w", err)
	}
	defer f.Close()

	var out []api.RouteEntry
	sc := bufio.NewScanner(f)
	sc.Scan() // header line
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 8 {
			continue
		}
		dst, err := ipFromHexLE(fields[1])
		if err != nil {
			continue
		}
		gw, err := ipFromHexLE(fields[2])
		if err != nil {
			continue
		}
		mask, err := ipFromHexLE(fields[7])
		if err != nil {
			continue
		}
		out = append(out, api.RouteEntry{
			DstIP:   dst,
			MaskLen: maskLen(mask),
			NextHop: gw,
			Ifindex: p.Ifindex,
		})
	}
	return out, sc.Err()
}

func be32(ip net.IP) uint32 {
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}

// ipFromHexLE parses a /proc/net/route hex field, which the kernel
// prints as a raw little-endian word, back into a normal big-endian
// dotted-quad uint32.
func ipFromHexLE(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v&0xFF)<<24 | uint32((v>>8)&0xFF)<<16 | uint32((v>>16)&0xFF)<<8 | uint32((v>>24)&0xFF), nil
}

func maskLen(mask uint32) int {
	n := 0
	for i := 31; i >= 0; i-- {
		if mask&(1<<uint(i)) == 0 {
			break
		}
		n++
	}
	return n
}
