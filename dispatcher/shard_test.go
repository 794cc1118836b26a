package dispatcher

import (
	"encoding/binary"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/momentics/xdpnet/api"
	"github.com/momentics/xdpnet/classify"
	"github.com/momentics/xdpnet/control"
	"github.com/momentics/xdpnet/core/protocol"
	"github.com/momentics/xdpnet/core/ring"
	"github.com/momentics/xdpnet/egress"
	"github.com/momentics/xdpnet/internal/aio"
	"github.com/momentics/xdpnet/internal/xdp"
	"github.com/momentics/xdpnet/link"
	"github.com/momentics/xdpnet/pool"
	"github.com/momentics/xdpnet/resolver"
)

func ip4(a, b, c, d byte) uint32 {
	return uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d)
}

func buildUDPFrame(srcIP, dstIP uint32, srcPort, dstPort uint16, payload []byte) []byte {
	buf := make([]byte, protocol.EthHeaderLen+20+protocol.UDPHeaderLen+len(payload))
	binary.BigEndian.PutUint16(buf[protocol.EthTypeOff:], protocol.EthTypeIPv4)
	buf[protocol.IHLOff] = 0x45
	buf[protocol.IPProtoOff] = protocol.IPProtoUDP
	binary.BigEndian.PutUint32(buf[protocol.IPSrcOff:], srcIP)
	binary.BigEndian.PutUint32(buf[protocol.IPDstOff:], dstIP)
	udpOff := protocol.UDPOffset(20)
	binary.BigEndian.PutUint16(buf[udpOff+protocol.UDPSrcPortOff:], srcPort)
	binary.BigEndian.PutUint16(buf[udpOff+protocol.UDPDstPortOff:], dstPort)
	copy(buf[udpOff+protocol.UDPHeaderLen:], payload)
	return buf
}

type fakeSocket struct {
	rxFrames [][]byte
	txSeen   [][]byte
	stats    xdp.Stats
}

func (f *fakeSocket) Service(rx xdp.RxCallback) (bool, error) {
	if len(f.rxFrames) == 0 {
		return false, nil
	}
	for _, buf := range f.rxFrames {
		rx(buf)
	}
	f.rxFrames = nil
	return true, nil
}

func (f *fakeSocket) Tx(frames [][]byte) (int, error) {
	f.txSeen = append(f.txSeen, frames...)
	return len(frames), nil
}

func (f *fakeSocket) Stats() xdp.Stats { return f.stats }

type fakeNetSource struct {
	calls int
}

func (f *fakeNetSource) DumpNeigh() (map[uint32]api.NeighEntry, error) {
	f.calls++
	return map[uint32]api.NeighEntry{}, nil
}

func (f *fakeNetSource) DumpRoutes() ([]api.RouteEntry, error) { return nil, nil }

func newTestShard(t *testing.T, shardID, shardCount int, rxFrames [][]byte) (*Shard, *fakeSocket, *fakeNetSource) {
	t.Helper()

	ws, err := pool.NewWorkspace(4, protocol.MTU)
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	ol := link.NewOutboundLink(ring.NewMetaRing(8), ws)
	pm := link.PortMap{8002: {Link: ol, Proto: protocol.ProtoTPUQUIC}}
	classifier := classify.New(pm, []uint16{8002})

	sock := &fakeSocket{rxFrames: rxFrames}
	adapter := aio.NewAdapter(sock, 4)

	netSrc := &fakeNetSource{}
	res := resolver.New(netSrc, ip4(10, 0, 0, 1), rate.Limit(1000), 10)

	egressPipeline := egress.New(egress.Config{
		SelfIP:     ip4(10, 0, 0, 1),
		SrcMAC:     api.MAC{0xaa, 0, 0, 0, 0, 0},
		ShardID:    shardID,
		ShardCount: shardCount,
	}, res, newAIOSender(adapter), newAIOSender(adapter))

	cfg := Config{
		ShardID:            shardID,
		ShardCount:         shardCount,
		HousekeepingPeriod: time.Hour,
		MetricsPeriod:      time.Hour,
	}
	shard := NewShard(cfg, Deps{
		Primary:      adapter,
		PrimaryStats: sock,
		Classifier:   classifier,
		Egress:       egressPipeline,
		Resolver:     res,
		Metrics:      control.NewMetricsRegistry(),
	})
	return shard, sock, netSrc
}

func TestPollRXClassifiesAndCountsReceived(t *testing.T) {
	frame := buildUDPFrame(ip4(10, 0, 0, 1), ip4(10, 0, 0, 2), 5000, 8002, []byte{1, 2, 3})
	shard, _, _ := newTestShard(t, 0, 1, [][]byte{frame})

	busy, err := shard.Poll(time.Now())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !busy {
		t.Fatal("expected busy=true")
	}
	if shard.counters.ReceivedPackets != 1 {
		t.Fatalf("ReceivedPackets = %d, want 1", shard.counters.ReceivedPackets)
	}
	if shard.counters.ReceivedBytes != uint64(len(frame)) {
		t.Fatalf("ReceivedBytes = %d, want %d", shard.counters.ReceivedBytes, len(frame))
	}
	if shard.deps.Classifier.Stats().Delivered != 1 {
		t.Fatal("expected classifier to deliver the frame")
	}
}

func TestPollRXFatalErrorPropagates(t *testing.T) {
	frame := buildUDPFrame(ip4(10, 0, 0, 1), ip4(10, 0, 0, 2), 5000, 9999, nil)
	shard, _, _ := newTestShard(t, 0, 1, [][]byte{frame})

	_, err := shard.Poll(time.Now())
	if err == nil {
		t.Fatal("expected a fatal error for an unknown destination port")
	}
	apiErr, ok := err.(*api.Error)
	if !ok || !apiErr.Fatal() {
		t.Fatalf("expected a fatal *api.Error, got %v", err)
	}
}

func TestPollInboundAcceptedFragSubmitsViaSender(t *testing.T) {
	shard, sock, _ := newTestShard(t, 0, 1, nil)

	ws, err := pool.NewWorkspace(4, protocol.MTU)
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	il := link.NewInboundLink(ring.NewMetaRing(8), ws)
	copy(ws.Slice(ws.Chunk0()), make([]byte, 20))
	sig := protocol.PackSig(0, ip4(127, 0, 0, 1), 0, protocol.ProtoOutgoing, 42)
	il.Meta.Publish(ring.Frag{Sig: sig, Chunk: ws.Chunk0(), Size: 20})

	if err := shard.BindInbound(il); err != nil {
		t.Fatalf("BindInbound: %v", err)
	}

	busy, err := shard.Poll(time.Now())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !busy {
		t.Fatal("expected busy=true")
	}
	if len(sock.txSeen) != 1 {
		t.Fatalf("txSeen = %d, want 1", len(sock.txSeen))
	}
}

func TestPollInboundRejectedFragStillAdvancesCursor(t *testing.T) {
	// shard 1 of 4 never accepts a loopback-routed frag (only shard 0 does).
	shard, sock, _ := newTestShard(t, 1, 4, nil)

	ws, err := pool.NewWorkspace(4, protocol.MTU)
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	il := link.NewInboundLink(ring.NewMetaRing(8), ws)
	sig := protocol.PackSig(0, ip4(127, 0, 0, 1), 0, protocol.ProtoOutgoing, 42)
	il.Meta.Publish(ring.Frag{Sig: sig, Chunk: ws.Chunk0(), Size: 20})

	if err := shard.BindInbound(il); err != nil {
		t.Fatalf("BindInbound: %v", err)
	}

	busy, err := shard.Poll(time.Now())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !busy {
		t.Fatal("expected busy=true: the ring was still claimed")
	}
	if len(sock.txSeen) != 0 {
		t.Fatal("shard 1 must not transmit a loopback-routed frag")
	}
	if _, _, ok := il.TryConsume(); ok {
		t.Fatal("expected the single published frag to have been claimed already")
	}
}

func TestBindInboundRejectsOverCapacity(t *testing.T) {
	shard, _, _ := newTestShard(t, 0, 1, nil)
	ws, err := pool.NewWorkspace(2, protocol.MTU)
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}

	links := make([]*link.InboundLink, maxInboundLinks)
	for i := range links {
		links[i] = link.NewInboundLink(ring.NewMetaRing(4), ws)
	}
	if err := shard.BindInbound(links...); err != nil {
		t.Fatalf("BindInbound at capacity: %v", err)
	}
	if err := shard.BindInbound(link.NewInboundLink(ring.NewMetaRing(4), ws)); err == nil {
		t.Fatal("expected an error binding past the 32-link cap")
	}
}

func TestRegisterDebugExposesShardState(t *testing.T) {
	shard, _, _ := newTestShard(t, 2, 4, nil)
	dp := control.NewDebugProbes()
	shard.RegisterDebug(dp)

	state := dp.DumpState()
	got, ok := state["dispatcher.shard.2"]
	if !ok {
		t.Fatal("expected a probe registered under dispatcher.shard.2")
	}
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("probe result type = %T, want map[string]any", got)
	}
	if m["fatal"] != false {
		t.Fatalf("fatal = %v, want false", m["fatal"])
	}
}

func TestRegisterDebugOnShard0AlsoRegistersPlatformProbes(t *testing.T) {
	shard, _, _ := newTestShard(t, 0, 1, nil)
	dp := control.NewDebugProbes()
	shard.RegisterDebug(dp)

	state := dp.DumpState()
	if _, ok := state["platform.cpus"]; !ok {
		t.Fatal("expected shard 0 to register the platform.cpus probe")
	}
}

func TestRegisterDebugOnNonZeroShardSkipsPlatformProbes(t *testing.T) {
	shard, _, _ := newTestShard(t, 1, 4, nil)
	dp := control.NewDebugProbes()
	shard.RegisterDebug(dp)

	state := dp.DumpState()
	if _, ok := state["platform.cpus"]; ok {
		t.Fatal("expected only shard 0 to register the platform.cpus probe")
	}
}

func TestHousekeepingAndMetricsFireOnFirstPollThenRateLimit(t *testing.T) {
	shard, _, netSrc := newTestShard(t, 0, 1, nil)

	now := time.Now()
	if _, err := shard.Poll(now); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if netSrc.calls != 1 {
		t.Fatalf("DumpNeigh calls = %d, want 1 after first poll", netSrc.calls)
	}
	snap := shard.deps.Metrics.GetSnapshot()
	for _, key := range []string{
		"RECEIVED_PACKETS", "RECEIVED_BYTES", "SENT_PACKETS", "SENT_BYTES",
		"TX_DROPPED", "XDP_RX_DROPPED_OTHER", "XDP_RX_DROPPED_RING_FULL",
	} {
		if _, ok := snap[key]; !ok {
			t.Fatalf("metrics snapshot missing %q", key)
		}
	}

	// HousekeepingPeriod/MetricsPeriod are an hour; a second poll a moment
	// later must not re-trigger either phase.
	if _, err := shard.Poll(now.Add(time.Millisecond)); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if netSrc.calls != 1 {
		t.Fatalf("DumpNeigh calls = %d, want still 1 (rate-limited)", netSrc.calls)
	}
}

func TestHousekeepingInvalidDescriptorsAreFatal(t *testing.T) {
	shard, sock, _ := newTestShard(t, 0, 1, nil)
	sock.stats.RxInvalidDescs = 1

	_, err := shard.Poll(time.Now())
	if err == nil {
		t.Fatal("expected a fatal error for a non-zero invalid descriptor count")
	}
	apiErr, ok := err.(*api.Error)
	if !ok || !apiErr.Fatal() {
		t.Fatalf("expected a fatal *api.Error, got %v", err)
	}
}

func TestHousekeepingOnlyShard0PollsXDPStatistics(t *testing.T) {
	shard, sock, _ := newTestShard(t, 1, 4, nil)
	sock.stats.RxInvalidDescs = 1

	if _, err := shard.Poll(time.Now()); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if shard.xdpStats.RxInvalidDescs != 0 {
		t.Fatal("non-zero-shard housekeeping must not poll XDP statistics")
	}
}
