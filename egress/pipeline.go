package egress

import (
	"time"

	"github.com/momentics/xdpnet/api"
	"github.com/momentics/xdpnet/core/protocol"
	"github.com/momentics/xdpnet/core/ring"
	"github.com/momentics/xdpnet/link"
	"github.com/momentics/xdpnet/resolver"
)

// Sender is the subset of the XDP socket driver egress needs: enqueue a
// small batch of complete Ethernet frames for transmission.
type Sender interface {
	Tx(frames [][]byte) (int, error)
}

// Config is the per-shard configuration egress needs from spec §6.
type Config struct {
	SelfIP     uint32
	SrcMAC     api.MAC
	ShardID    int
	ShardCount int
}

// Pipeline is the C6 egress pipeline. One Pipeline serves one shard;
// Primary is required, Loopback may be nil on shards that don't bind a
// loopback socket (spec §3: "the loopback XDP socket exists iff this is
// shard 0 and the primary interface is not itself loopback").
type Pipeline struct {
	cfg      Config
	resolver *resolver.Resolver
	primary  Sender
	loopback Sender

	staging [protocol.MTU]byte

	txDropped   uint64
	sentPackets uint64
	sentBytes   uint64
}

// New builds a Pipeline. loopback may be nil.
func New(cfg Config, res *resolver.Resolver, primary, loopback Sender) *Pipeline {
	return &Pipeline{cfg: cfg, resolver: res, primary: primary, loopback: loopback}
}

// TxDropped returns the running count of submissions that failed or
// were otherwise rejected, folded into the TX_DROPPED metric.
func (p *Pipeline) TxDropped() uint64 { return p.txDropped }

// SentPackets returns the running count of frames successfully handed to
// a Sender, folded into the SENT_PACKETS metric.
func (p *Pipeline) SentPackets() uint64 { return p.sentPackets }

// SentBytes returns the running byte total of frames successfully handed
// to a Sender, folded into the SENT_BYTES metric.
func (p *Pipeline) SentBytes() uint64 { return p.sentBytes }

func (p *Pipeline) isLoopbackRoutable(ip uint32) bool {
	return protocol.IsLoopbackIP(ip) || ip == p.cfg.SelfIP
}

// BeforeFrag is the spec §4.6 pre-flight check: non-OUTGOING frags are
// always rejected; loopback-routed frags are accepted only by shard 0;
// everything else is accepted only by the shard `seq mod N` selects.
func (p *Pipeline) BeforeFrag(sig protocol.Sig, seq uint64) bool {
	if sig.Proto() != protocol.ProtoOutgoing {
		return false
	}
	if p.isLoopbackRoutable(sig.DstIP()) {
		return p.cfg.ShardID == 0
	}
	return seq%uint64(p.cfg.ShardCount) == uint64(p.cfg.ShardID)
}

// DuringFrag bounds-checks chunk against il's range (fatal on violation,
// spec §4.6) and copies the payload into the pipeline's private staging
// frame, since the XDP send API does not retain a caller pointer across
// the call.
func (p *Pipeline) DuringFrag(il *link.InboundLink, chunk ring.Chunk, sz uint32) ([]byte, error) {
	if !il.Contains(chunk) {
		return nil, api.NewError(api.ErrCodeFatal, "egress: chunk out of range").
			WithContext("chunk", chunk).
			WithContext("chunk0", il.Chunk0).
			WithContext("wmark", il.Wmark)
	}
	payload := il.Payload(chunk)
	if int(sz) > len(payload) {
		sz = uint32(len(payload))
	}
	n := copy(p.staging[:], payload[:sz])
	return p.staging[:n], nil
}

// AfterFrag implements spec §4.6's transmit decision: loopback frames
// have their first 12 bytes zeroed and go out the loopback socket;
// everything else is resolved via the route/ARP resolver and, on
// success, Ethernet-addressed to the resolved next hop.
func (p *Pipeline) AfterFrag(sig protocol.Sig, frame []byte, now time.Time) error {
	dstIP := sig.DstIP()

	if p.isLoopbackRoutable(dstIP) {
		protocol.ZeroEthAddrs(frame)
		return p.submit(p.loopback, frame)
	}

	res := p.resolver.Lookup(dstIP, now)
	switch res.Result {
	case resolver.ResultSuccess:
		protocol.SetEthDst(frame, [6]byte(res.MAC))
		protocol.SetEthSrc(frame, [6]byte(p.cfg.SrcMAC))
		return p.submit(p.primary, frame)
	case resolver.ResultProbeRequired:
		if probes := p.resolver.DrainProbes(p.cfg.SrcMAC); len(probes) > 0 {
			p.primary.Tx(probes)
			p.resolver.ReleaseProbes(probes)
		}
		p.txDropped++ // ARP not yet resolved: transient, counted (spec §7)
		return nil
	case resolver.ResultRetry:
		p.txDropped++
		return nil
	case resolver.ResultNoRoute, resolver.ResultMulticast, resolver.ResultBroadcast:
		return nil // remote unreachable: dropped silently, not counted (spec §7)
	default:
		return nil
	}
}

func (p *Pipeline) submit(s Sender, frame []byte) error {
	if s == nil {
		p.txDropped++
		return nil
	}
	sent, err := s.Tx([][]byte{frame})
	if err != nil || sent == 0 {
		p.txDropped++
		return err
	}
	p.sentPackets++
	p.sentBytes += uint64(len(frame))
	return nil
}
