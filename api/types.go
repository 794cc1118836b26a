// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations for the xdpnet dispatcher: the
// external bootstrap/netlink collaborator contracts named in spec §6,
// and the counter set exposed to the metrics sink.

package api

import "time"

// MAC is a 6-byte Ethernet hardware address.
type MAC [6]byte

// XDPMode selects the binding mode for an AF_XDP socket.
type XDPMode int

const (
	XDPModeCopy XDPMode = iota
	XDPModeZeroCopy
)

// ProgMode selects native vs. generic (SKB) XDP program attachment.
type ProgMode int

const (
	ProgModeNative ProgMode = iota
	ProgModeSKB
)

// Bootstrap is the privileged external collaborator that installs the XDP
// program, creates the XSKMAP, and binds/activates individual AF_XDP
// sockets. The dispatcher core never performs privileged setup itself;
// it only calls through this interface (spec §6 sandbox bootstrap
// interface).
type Bootstrap interface {
	// InstallXDP attaches the XDP program to ifindex, filtering for the
	// given candidate UDP ports, and returns the program link fd and the
	// XSKMAP fd sockets are later inserted into.
	InstallXDP(ifindex int, srcIP uint32, udpPortCandidates []uint16, mode ProgMode) (progLinkFD int, xskMapFD int, err error)

	// BindXSK binds a raw AF_XDP socket fd to a NIC queue.
	BindXSK(xskFD int, ifindex, queueID int, mode XDPMode) error

	// ActivateXSK inserts an already-bound socket into the XSKMAP so the
	// XDP program starts steering matching traffic to it.
	ActivateXSK(xskFD, xskMapFD, queueID int) error
}

// NetlinkSource is the external collaborator that scrapes the kernel's
// neighbor (ARP) and routing tables. Resolver refresh logic depends only
// on this interface; the real netlink socket reader lives outside the
// dispatcher core per spec §1.
type NetlinkSource interface {
	// DumpNeigh returns the current ARP table as dst-IP -> (MAC, ifindex).
	DumpNeigh() (map[uint32]NeighEntry, error)

	// DumpRoutes returns the current routing table entries.
	DumpRoutes() ([]RouteEntry, error)
}

// NeighEntry is one resolved (or pending) ARP cache entry.
type NeighEntry struct {
	MAC     MAC
	Ifindex int
	Pending bool
	Age     time.Time
}

// RouteEntry is one routing table entry: destinations matching
// DstIP/MaskLen route through NextHop on Ifindex. MaskLen==0 with
// DstIP==0 denotes the default route.
type RouteEntry struct {
	DstIP   uint32
	MaskLen int
	NextHop uint32
	Ifindex int
}

// CounterSet mirrors the operational counters spec §6 requires the
// dispatcher to expose.
type CounterSet struct {
	ReceivedPackets      uint64
	ReceivedBytes        uint64
	SentPackets          uint64
	SentBytes            uint64
	TxDropped            uint64
	XDPRxDroppedOther    uint64
	XDPRxDroppedRingFull uint64
}

// ServiceInfo exposes descriptive build- and runtime info for external
// tools (status endpoints, debug dumps).
type ServiceInfo struct {
	Name      string
	Version   string
	Build     string
	StartedAt time.Time
}
