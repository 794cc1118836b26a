package classify

import (
	"fmt"

	"github.com/momentics/xdpnet/api"
	"github.com/momentics/xdpnet/core/protocol"
	"github.com/momentics/xdpnet/core/ring"
	"github.com/momentics/xdpnet/link"
)

// Outcome is the disposition of one Classify call.
type Outcome int

const (
	OutcomeDelivered Outcome = iota
	OutcomeDropped
)

// Stats accumulates the non-fatal drop counters spec §6 folds into
// XDP_RX_DROPPED_OTHER.
type Stats struct {
	Delivered      uint64
	DroppedOversize uint64
	DroppedShortUDP uint64
}

// Pipeline is the C5 classifier: stateless aside from its port map and
// running counters, and safe to drive from a single poll loop only (it
// advances each OutboundLink's write cursor, which has exactly one
// producer).
type Pipeline struct {
	ports     link.PortMap
	configured []uint16
	stats     Stats
}

// New builds a Pipeline over an already-constructed port map.
func New(ports link.PortMap, configuredPorts []uint16) *Pipeline {
	return &Pipeline{ports: ports, configured: configuredPorts}
}

// Stats returns a snapshot of the running counters.
func (p *Pipeline) Stats() Stats { return p.stats }

// Classify runs the spec §4.5 steps 1-8 over one received frame. A
// returned error with Fatal()==true must terminate the owning shard; any
// other return is a normal, silently-countable drop.
func (p *Pipeline) Classify(buf []byte, tsOrig int64) (Outcome, error) {
	if len(buf) > protocol.MTU {
		p.stats.DroppedOversize++
		return OutcomeDropped, nil
	}

	if !protocol.IsIPv4UDP(buf) {
		return OutcomeDropped, api.NewError(api.ErrCodeFatal, "classify: frame is not IPv4/UDP").
			WithContext("len", len(buf))
	}

	ihl := protocol.IHL(buf)
	udpOff := protocol.UDPOffset(ihl)
	if udpOff+protocol.UDPHeaderLen > len(buf) {
		p.stats.DroppedShortUDP++
		return OutcomeDropped, nil
	}

	srcIP := protocol.SrcIP(buf)
	srcPort, dstPort := protocol.UDPPorts(buf, udpOff)

	binding, ok := p.ports[dstPort]
	if !ok {
		return OutcomeDropped, api.NewError(api.ErrCodeFatal,
			fmt.Sprintf("classify: unknown destination port %d, expected one of %v", dstPort, p.configured)).
			WithContext("port", dstPort)
	}

	hdrLen := uint8(protocol.EthHeaderLen + ihl + protocol.UDPHeaderLen)
	sig := protocol.PackSig(srcIP, 0, srcPort, binding.Proto, hdrLen)

	chunk := binding.Link.NextChunk()
	n := copy(binding.Link.Payload(chunk), buf)

	binding.Link.Publish(ring.Frag{
		Sig:    sig,
		Chunk:  chunk,
		Size:   uint32(n),
		TsOrig: tsOrig,
		TsPub:  tsOrig,
	})

	p.stats.Delivered++
	return OutcomeDelivered, nil
}
