// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Sig is the packed 64-bit frag discriminant described in spec §3: proto
// tag, header length, source port and one IPv4 address. Only one IP slot
// exists because no caller ever needs both simultaneously — the
// classifier (C5) packs the frame's source IP for inbound frags, and the
// producer of an OUTGOING frag packs the destination IP for egress; the
// resolver (C4) and egress pipeline (C6) only ever read the field that
// matches the frag's own direction.

package protocol

// ProtoTag identifies which downstream pipeline a frag is destined for,
// or (for Outgoing) that it is an egress frag bound for the wire.
type ProtoTag uint8

const (
	ProtoShred ProtoTag = iota
	ProtoTPUQUIC
	ProtoTPUUDP
	ProtoGossip
	ProtoRepair
	ProtoOutgoing
)

func (p ProtoTag) String() string {
	switch p {
	case ProtoShred:
		return "shred"
	case ProtoTPUQUIC:
		return "tpu_quic"
	case ProtoTPUUDP:
		return "tpu_udp"
	case ProtoGossip:
		return "gossip"
	case ProtoRepair:
		return "repair"
	case ProtoOutgoing:
		return "outgoing"
	default:
		return "unknown"
	}
}

// Sig is the packed 64-bit descriptor carried by every frag.
type Sig uint64

const (
	sigIPShift    = 0
	sigPortShift  = 32
	sigHdrShift   = 48
	sigProtoShift = 56
)

// PackSig builds a Sig. For ProtoOutgoing, dstIP occupies the IP slot and
// srcIP is dropped; for every other proto tag, srcIP occupies the slot and
// dstIP is dropped. hdrLen is the L2+L3+L4 header length (spec §4.5 step 8).
func PackSig(srcIP, dstIP uint32, srcPort uint16, proto ProtoTag, hdrLen uint8) Sig {
	ip := srcIP
	if proto == ProtoOutgoing {
		ip = dstIP
	}
	return Sig(uint64(ip)<<sigIPShift |
		uint64(srcPort)<<sigPortShift |
		uint64(hdrLen)<<sigHdrShift |
		uint64(proto)<<sigProtoShift)
}

// UnpackSig decomposes a Sig. Exactly one of srcIP/dstIP is meaningful,
// selected by proto: ProtoOutgoing yields dstIP, every other tag yields
// srcIP; the other return value is zero.
func UnpackSig(s Sig) (srcIP, dstIP uint32, srcPort uint16, proto ProtoTag, hdrLen uint8) {
	ip := uint32(s >> sigIPShift)
	srcPort = uint16(s >> sigPortShift)
	hdrLen = uint8(s >> sigHdrShift)
	proto = ProtoTag(s >> sigProtoShift)
	if proto == ProtoOutgoing {
		dstIP = ip
	} else {
		srcIP = ip
	}
	return
}

// Proto extracts just the proto tag, the hot-path accessor used by the
// egress pipeline's before_frag pre-flight check.
func (s Sig) Proto() ProtoTag { return ProtoTag(s >> sigProtoShift) }

// DstIP extracts the destination IP from an ProtoOutgoing sig.
func (s Sig) DstIP() uint32 { return uint32(s >> sigIPShift) }

// SrcIP extracts the source IP from a non-Outgoing sig.
func (s Sig) SrcIP() uint32 { return uint32(s >> sigIPShift) }

// SrcPort extracts the packed source port.
func (s Sig) SrcPort() uint16 { return uint16(s >> sigPortShift) }

// HdrLen extracts the packed L2+L3+L4 header length.
func (s Sig) HdrLen() uint8 { return uint8(s >> sigHdrShift) }
