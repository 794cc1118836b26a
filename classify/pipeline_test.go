package classify

import (
	"encoding/binary"
	"testing"

	"github.com/momentics/xdpnet/api"
	"github.com/momentics/xdpnet/core/protocol"
	"github.com/momentics/xdpnet/core/ring"
	"github.com/momentics/xdpnet/link"
	"github.com/momentics/xdpnet/pool"
)

func buildUDPFrame(srcIP, dstIP uint32, srcPort, dstPort uint16, payload []byte) []byte {
	buf := make([]byte, protocol.EthHeaderLen+20+protocol.UDPHeaderLen+len(payload))
	binary.BigEndian.PutUint16(buf[protocol.EthTypeOff:], protocol.EthTypeIPv4)
	buf[protocol.IHLOff] = 0x45 // version 4, IHL 5 (20 bytes)
	buf[protocol.IPProtoOff] = protocol.IPProtoUDP
	binary.BigEndian.PutUint32(buf[protocol.IPSrcOff:], srcIP)
	binary.BigEndian.PutUint32(buf[protocol.IPDstOff:], dstIP)
	udpOff := protocol.UDPOffset(20)
	binary.BigEndian.PutUint16(buf[udpOff+protocol.UDPSrcPortOff:], srcPort)
	binary.BigEndian.PutUint16(buf[udpOff+protocol.UDPDstPortOff:], dstPort)
	copy(buf[udpOff+protocol.UDPHeaderLen:], payload)
	return buf
}

func newTestPipeline(t *testing.T, dstPort uint16, proto protocol.ProtoTag) (*Pipeline, *link.OutboundLink) {
	t.Helper()
	ws, err := pool.NewWorkspace(4, protocol.MTU)
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	ol := link.NewOutboundLink(ring.NewMetaRing(8), ws)
	pm := link.PortMap{dstPort: {Link: ol, Proto: proto}}
	return New(pm, []uint16{dstPort}), ol
}

func TestClassifyQuicHappyPath(t *testing.T) {
	p, ol := newTestPipeline(t, 8002, protocol.ProtoTPUQUIC)
	payload := make([]byte, 100-protocol.EthHeaderLen-20-protocol.UDPHeaderLen)
	frame := buildUDPFrame(ip4(10, 0, 0, 1), ip4(10, 0, 0, 2), 5000, 8002, payload)

	outcome, err := p.Classify(frame, 42)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if outcome != OutcomeDelivered {
		t.Fatalf("outcome = %v, want delivered", outcome)
	}

	frag, seq, ok := ol.Meta.TryConsume()
	if !ok {
		t.Fatal("expected a published frag")
	}
	if seq != 0 {
		t.Fatalf("seq = %d, want 0", seq)
	}
	srcIP, _, srcPort, proto, hdrLen := protocol.UnpackSig(frag.Sig)
	if srcIP != ip4(10, 0, 0, 1) {
		t.Fatalf("sig.src_ip = %x, want 10.0.0.1", srcIP)
	}
	if srcPort != 5000 {
		t.Fatalf("sig.src_port = %d, want 5000", srcPort)
	}
	if proto != protocol.ProtoTPUQUIC {
		t.Fatalf("sig.proto = %v, want tpu_quic", proto)
	}
	if hdrLen != 42 {
		t.Fatalf("sig.hdrlen = %d, want 42", hdrLen)
	}
	if int(frag.Size) != len(frame) {
		t.Fatalf("frag.Size = %d, want %d", frag.Size, len(frame))
	}
}

func ip4(a, b, c, d byte) uint32 {
	return uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d)
}

func TestClassifyUnknownPortIsFatal(t *testing.T) {
	p, _ := newTestPipeline(t, 8002, protocol.ProtoTPUQUIC)
	frame := buildUDPFrame(ip4(10, 0, 0, 1), ip4(10, 0, 0, 2), 5000, 9999, nil)

	_, err := p.Classify(frame, 0)
	if err == nil {
		t.Fatal("expected a fatal error for an unknown destination port")
	}
	apiErr, ok := err.(*api.Error)
	if !ok || !apiErr.Fatal() {
		t.Fatalf("expected a fatal *api.Error, got %v", err)
	}
}

func TestClassifyNonIPv4UDPIsFatal(t *testing.T) {
	p, _ := newTestPipeline(t, 8002, protocol.ProtoTPUQUIC)
	frame := make([]byte, 64)
	binary.BigEndian.PutUint16(frame[protocol.EthTypeOff:], 0x86DD) // IPv6, not IPv4

	_, err := p.Classify(frame, 0)
	apiErr, ok := err.(*api.Error)
	if !ok || !apiErr.Fatal() {
		t.Fatalf("expected a fatal *api.Error, got %v", err)
	}
}

func TestClassifyOversizeDropsSilently(t *testing.T) {
	p, _ := newTestPipeline(t, 8002, protocol.ProtoTPUQUIC)
	frame := make([]byte, protocol.MTU+1)
	outcome, err := p.Classify(frame, 0)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if outcome != OutcomeDropped {
		t.Fatalf("outcome = %v, want dropped", outcome)
	}
	if p.Stats().DroppedOversize != 1 {
		t.Fatalf("DroppedOversize = %d, want 1", p.Stats().DroppedOversize)
	}
}

func TestClassifyShortUDPDropsSilently(t *testing.T) {
	p, _ := newTestPipeline(t, 8002, protocol.ProtoTPUQUIC)
	frame := buildUDPFrame(ip4(10, 0, 0, 1), ip4(10, 0, 0, 2), 5000, 8002, nil)
	frame = frame[:protocol.UDPOffset(20)+4] // truncate mid-UDP-header

	outcome, err := p.Classify(frame, 0)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if outcome != OutcomeDropped {
		t.Fatalf("outcome = %v, want dropped", outcome)
	}
	if p.Stats().DroppedShortUDP != 1 {
		t.Fatalf("DroppedShortUDP = %d, want 1", p.Stats().DroppedShortUDP)
	}
}
