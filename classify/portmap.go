package classify

import (
	"github.com/momentics/xdpnet/core/protocol"
	"github.com/momentics/xdpnet/link"
)

// PortMapConfig names the six configurable listen ports of spec §3's
// destination-port map. A zero value disables that entry.
type PortMapConfig struct {
	ShredListen             uint16
	QUICTransactionListen   uint16
	LegacyTransactionListen uint16
	GossipListen            uint16
	RepairIntakeListen      uint16
	RepairServeListen       uint16
}

// Links bundles the outbound links the port map binds into. Legacy and
// QUIC transactions share TPU, and both repair ports share Repair,
// matching spec §4.5's "legacy transactions share the QUIC destination
// queue but with a distinct tag."
type Links struct {
	Shred  *link.OutboundLink
	TPU    *link.OutboundLink
	Gossip *link.OutboundLink
	Repair *link.OutboundLink
}

// BuildPortMap constructs the port map and the list of configured
// (non-zero) ports in PortMapConfig field order (not sorted), the latter
// used verbatim in the fatal "unknown port" error message spec §4.5
// requires.
func BuildPortMap(cfg PortMapConfig, l Links) (link.PortMap, []uint16) {
	pm := make(link.PortMap, 6)
	var configured []uint16

	add := func(port uint16, ol *link.OutboundLink, proto protocol.ProtoTag) {
		if port == 0 {
			return
		}
		pm[port] = link.PortBinding{Link: ol, Proto: proto}
		configured = append(configured, port)
	}

	add(cfg.ShredListen, l.Shred, protocol.ProtoShred)
	add(cfg.QUICTransactionListen, l.TPU, protocol.ProtoTPUQUIC)
	add(cfg.LegacyTransactionListen, l.TPU, protocol.ProtoTPUUDP)
	add(cfg.GossipListen, l.Gossip, protocol.ProtoGossip)
	add(cfg.RepairIntakeListen, l.Repair, protocol.ProtoRepair)
	add(cfg.RepairServeListen, l.Repair, protocol.ProtoRepair)

	return pm, configured
}
