package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/momentics/xdpnet/affinity"
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

// StatsSource is the subset of *xdp.Socket the housekeeping and
// metrics_write phases poll for kernel-reported counters.
type StatsSource interface {
	Stats() xdp.Stats
}

// aioSenderBatchCap sizes the pooled batches aioSender reuses across Tx
// calls; a shard's egress path hands at most a handful of frames per
// call (one frag, or a short burst of ARP probes).
const aioSenderBatchCap = 8

// aioSender adapts a C3 Adapter to the egress.Sender contract, routing
// every egress transmit through the same batching layer C2 drains RX
// through (spec §4.7: "hands each to C6 which calls into C4 then
// C2/C3 for transmit").
type aioSender struct {
	a         *aio.Adapter
	batchPool *pool.SyncObjectPool[*aio.SliceBatch[[]byte]]
}

// newAIOSender builds an aioSender with its own pool of reusable
// batches, so Tx doesn't allocate a fresh *aio.SliceBatch on every call.
func newAIOSender(a *aio.Adapter) *aioSender {
	return &aioSender{
		a: a,
		batchPool: pool.NewSyncObjectPool(func() *aio.SliceBatch[[]byte] {
			return aio.NewSliceBatch[[]byte](aioSenderBatchCap)
		}),
	}
}

func (s *aioSender) Tx(frames [][]byte) (int, error) {
	batch := s.batchPool.Get()
	batch.Reset()
	for _, f := range frames {
		batch.Push(f)
	}
	n, err := s.a.Send(batch, batch.Len())
	s.batchPool.Put(batch)
	return n, err
}

// Counters accumulates the shard-local ingestion totals the XDP driver
// and classifier don't already track on their own.
type Counters struct {
	ReceivedPackets uint64
	ReceivedBytes   uint64
}

// Deps bundles one shard's already-constructed collaborators. Bootstrap
// builds a production Deps from real XDP sockets; tests build one from
// fakes, exercising the poll-loop logic without kernel access.
type Deps struct {
	Primary  *aio.Adapter
	Loopback *aio.Adapter // nil if this shard binds no loopback socket

	PrimaryStats  StatsSource
	LoopbackStats StatsSource // nil if Loopback is nil

	Classifier *classify.Pipeline
	Egress     *egress.Pipeline
	Resolver   *resolver.Resolver
	Metrics    *control.MetricsRegistry

	Inbound []*link.InboundLink
}

// Shard drives one instance of the C7 poll loop.
type Shard struct {
	cfg  Config
	deps Deps

	counters Counters
	xdpStats xdp.Stats
	fatal    error

	nextHousekeeping time.Time
	nextMetricsWrite time.Time
}

// NewShard wires cfg and an already-built Deps into a pollable Shard.
func NewShard(cfg Config, deps Deps) *Shard {
	return &Shard{cfg: cfg, deps: deps}
}

// BindInbound adds inbound-ring bindings this shard reads frags from
// (spec §3: "for each of up to 32 inbound rings"). Construction of the
// shared MetaRing each binding wraps is the caller's responsibility,
// since the producer side is an external peer stage.
func (s *Shard) BindInbound(links ...*link.InboundLink) error {
	if len(s.deps.Inbound)+len(links) > maxInboundLinks {
		return fmt.Errorf("dispatcher: too many inbound links (have %d, adding %d, max %d)",
			len(s.deps.Inbound), len(links), maxInboundLinks)
	}
	s.deps.Inbound = append(s.deps.Inbound, links...)
	return nil
}

// Poll runs one iteration of all four phases (spec §4.7) and reports
// whether any phase made progress. A non-nil error is always fatal
// (spec §7) and the caller must stop calling Poll on this shard.
func (s *Shard) Poll(now time.Time) (bool, error) {
	busy, err := s.pollRX(now)
	if err != nil {
		return busy, err
	}
	if s.pollInbound(now) {
		busy = true
	}
	if s.fatal != nil {
		return busy, s.fatal
	}
	s.housekeeping(now)
	if s.fatal != nil {
		return busy, s.fatal
	}
	s.metricsWrite(now)
	return busy, nil
}

// Run pins the calling goroutine's OS thread to cpuID (spec §5: one
// shard per logical core, no internal multithreading) and polls until
// ctx is cancelled or a phase reports a fatal error.
func (s *Shard) Run(ctx context.Context) error {
	if s.cfg.CPUID >= 0 {
		if err := affinity.SetAffinity(s.cfg.CPUID); err != nil {
			return fmt.Errorf("dispatcher: pin shard %d to cpu %d: %w", s.cfg.ShardID, s.cfg.CPUID, err)
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := s.Poll(time.Now()); err != nil {
			return err
		}
	}
}

// pollRX is phase 1: drain every bound XDP socket through its C3
// adapter, classifying each frame as it's flushed out of a batch.
func (s *Shard) pollRX(now time.Time) (bool, error) {
	busy := false

	classifyBatch := func(batch api.Batch[[]byte], n int) {
		for i := 0; i < n && s.fatal == nil; i++ {
			buf := batch.Get(i)
			s.counters.ReceivedPackets++
			s.counters.ReceivedBytes += uint64(len(buf))
			if _, err := s.deps.Classifier.Classify(buf, now.UnixNano()); err != nil {
				s.fatal = err
			}
		}
	}

	if s.deps.Primary != nil {
		b, err := s.deps.Primary.Recv(classifyBatch)
		if err != nil {
			return busy, err
		}
		busy = busy || b
	}
	if s.deps.Loopback != nil {
		b, err := s.deps.Loopback.Recv(classifyBatch)
		if err != nil {
			return busy, err
		}
		busy = busy || b
	}
	return busy, nil
}

// pollInbound is phase 2: claim at most one frag from the first bound
// inbound ring that has one, and route it through the egress pipeline
// (spec §4.7: "burst size is 1 frag per iteration").
func (s *Shard) pollInbound(now time.Time) bool {
	for _, il := range s.deps.Inbound {
		frag, seq, ok := il.TryConsume()
		if !ok {
			continue
		}
		if !s.deps.Egress.BeforeFrag(frag.Sig, seq) {
			return true
		}
		frame, err := s.deps.Egress.DuringFrag(il, frag.Chunk, frag.Size)
		if err != nil {
			s.fatal = err
			return true
		}
		if err := s.deps.Egress.AfterFrag(frag.Sig, frame, now); err != nil {
			s.fatal = err
		}
		return true
	}
	return false
}

// housekeeping is phase 3: refresh the resolver's cached tables, and on
// shard 0 only, poll kernel XDP statistics (spec §4.7). A non-zero
// invalid-descriptor count is a programmer/configuration error (spec §7)
// and terminates the shard.
func (s *Shard) housekeeping(now time.Time) {
	if now.Before(s.nextHousekeeping) {
		return
	}
	s.deps.Resolver.Refresh(now)

	if s.cfg.ShardID == 0 {
		var stats xdp.Stats
		if s.deps.PrimaryStats != nil {
			stats.Add(s.deps.PrimaryStats.Stats())
		}
		if s.deps.LoopbackStats != nil {
			stats.Add(s.deps.LoopbackStats.Stats())
		}
		s.xdpStats = stats

		if stats.RxInvalidDescs != 0 || stats.TxInvalidDescs != 0 {
			s.fatal = api.NewError(api.ErrCodeFatal, "dispatcher: non-zero invalid descriptor count").
				WithContext("rx_invalid_descs", stats.RxInvalidDescs).
				WithContext("tx_invalid_descs", stats.TxInvalidDescs)
		}
	}

	s.nextHousekeeping = now.Add(s.cfg.HousekeepingPeriod)
}

// metricsWrite is phase 4: aggregate RX/TX counters from every bound
// socket plus tx_dropped_cnt into the counter sink (spec §4.7/§6). The
// XDP driver counters are whatever housekeeping last polled (shard 0
// only; other shards report zero there by design).
func (s *Shard) metricsWrite(now time.Time) {
	if now.Before(s.nextMetricsWrite) {
		return
	}

	clStats := s.deps.Classifier.Stats()

	cs := api.CounterSet{
		ReceivedPackets:      s.counters.ReceivedPackets,
		ReceivedBytes:        s.counters.ReceivedBytes,
		SentPackets:          s.deps.Egress.SentPackets(),
		SentBytes:            s.deps.Egress.SentBytes(),
		TxDropped:            s.deps.Egress.TxDropped(),
		XDPRxDroppedOther:    clStats.DroppedOversize + clStats.DroppedShortUDP + s.xdpStats.RxDropped,
		XDPRxDroppedRingFull: s.xdpStats.RxRingFull,
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.Set("RECEIVED_PACKETS", cs.ReceivedPackets)
		s.deps.Metrics.Set("RECEIVED_BYTES", cs.ReceivedBytes)
		s.deps.Metrics.Set("SENT_PACKETS", cs.SentPackets)
		s.deps.Metrics.Set("SENT_BYTES", cs.SentBytes)
		s.deps.Metrics.Set("TX_DROPPED", cs.TxDropped)
		s.deps.Metrics.Set("XDP_RX_DROPPED_OTHER", cs.XDPRxDroppedOther)
		s.deps.Metrics.Set("XDP_RX_DROPPED_RING_FULL", cs.XDPRxDroppedRingFull)
	}

	s.nextMetricsWrite = now.Add(s.cfg.MetricsPeriod)
}

// RegisterDebug wires this shard's live state into dp under a name keyed
// by its shard ID, for inspection through whatever handler dp is attached
// to (e.g. the debug dump of a status endpoint). On shard 0 it also wires
// the platform-level probes (spec §6's debug surface is process-wide, not
// per-shard, so one registration per process is enough).
func (s *Shard) RegisterDebug(dp *control.DebugProbes) {
	dp.RegisterProbe(fmt.Sprintf("dispatcher.shard.%d", s.cfg.ShardID), func() any {
		return map[string]any{
			"received_packets": s.counters.ReceivedPackets,
			"received_bytes":   s.counters.ReceivedBytes,
			"sent_packets":     s.deps.Egress.SentPackets(),
			"tx_dropped":       s.deps.Egress.TxDropped(),
			"inbound_links":    len(s.deps.Inbound),
			"fatal":            s.fatal != nil,
		}
	})
	if s.cfg.ShardID == 0 {
		control.RegisterPlatformProbes(dp)
	}
}

// zeroCopyMode maps the spec §6 zero_copy bool onto the C2 bind mode.
func zeroCopyMode(zeroCopy bool) api.XDPMode {
	if zeroCopy {
		return api.XDPModeZeroCopy
	}
	return api.XDPModeCopy
}

// Bootstrap builds a production Shard: it opens the primary (and, on
// shard 0 with a non-loopback primary interface, loopback) AF_XDP
// sockets via bs, wires the classifier's four destination rings, and
// constructs a per-shard resolver over netSrc. Each socket is inserted
// into the XSKMAP by xdp.Open through bs; the one-time install_xdp call
// is the caller's responsibility (spec treats topology/bootstrap wiring
// as out of scope), so cfg.XSKMapFD must already name an installed map.
func Bootstrap(cfg Config, bs api.Bootstrap, netSrc api.NetlinkSource, metrics *control.MetricsRegistry) (*Shard, error) {
	shredWS, err := pool.NewWorkspace(cfg.OutboundRingChunks, protocol.MTU)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: shred workspace: %w", err)
	}
	tpuWS, err := pool.NewWorkspace(cfg.OutboundRingChunks, protocol.MTU)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: tpu workspace: %w", err)
	}
	gossipWS, err := pool.NewWorkspace(cfg.OutboundRingChunks, protocol.MTU)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: gossip workspace: %w", err)
	}
	repairWS, err := pool.NewWorkspace(cfg.OutboundRingChunks, protocol.MTU)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: repair workspace: %w", err)
	}

	links := classify.Links{
		Shred:  link.NewOutboundLink(ring.NewMetaRing(cfg.OutboundRingDepth), shredWS),
		TPU:    link.NewOutboundLink(ring.NewMetaRing(cfg.OutboundRingDepth), tpuWS),
		Gossip: link.NewOutboundLink(ring.NewMetaRing(cfg.OutboundRingDepth), gossipWS),
		Repair: link.NewOutboundLink(ring.NewMetaRing(cfg.OutboundRingDepth), repairWS),
	}
	portMap, configuredPorts := classify.BuildPortMap(cfg.Ports, links)
	classifier := classify.New(portMap, configuredPorts)

	primaryUMEM, err := pool.NewWorkspace(cfg.UMEMChunks, protocol.MTU)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: primary umem: %w", err)
	}
	primarySock, err := xdp.Open(primaryUMEM, bs, xdp.Config{
		Ifindex:   cfg.Ifindex,
		QueueID:   cfg.QueueID,
		XSKMapFD:  cfg.XSKMapFD,
		Mode:      zeroCopyMode(cfg.ZeroCopy),
		ProgMode:  api.ProgModeNative,
		RxDepth:   cfg.RxQueueSize,
		TxDepth:   cfg.TxQueueSize,
		FillDepth: cfg.RxQueueSize,
		CompDepth: cfg.TxQueueSize,
	})
	if err != nil {
		return nil, fmt.Errorf("dispatcher: open primary xdp socket: %w", err)
	}
	primaryAdapter := aio.NewAdapter(primarySock, cfg.AIODepth)

	var loopbackAdapter *aio.Adapter
	var loopbackStats StatsSource
	var loopbackSender egress.Sender
	if cfg.ShardID == 0 && !cfg.PrimaryIsLoopback && cfg.LoopbackIfindex != 0 {
		loopbackUMEM, err := pool.NewWorkspace(cfg.UMEMChunks, protocol.MTU)
		if err != nil {
			return nil, fmt.Errorf("dispatcher: loopback umem: %w", err)
		}
		loopbackSock, err := xdp.Open(loopbackUMEM, bs, xdp.Config{
			Ifindex:   cfg.LoopbackIfindex,
			QueueID:   0,
			XSKMapFD:  cfg.XSKMapFD,
			Mode:      api.XDPModeCopy,
			ProgMode:  api.ProgModeSKB,
			RxDepth:   cfg.RxQueueSize,
			TxDepth:   cfg.TxQueueSize,
			FillDepth: cfg.RxQueueSize,
			CompDepth: cfg.TxQueueSize,
		})
		if err != nil {
			return nil, fmt.Errorf("dispatcher: open loopback xdp socket: %w", err)
		}
		loopbackAdapter = aio.NewAdapter(loopbackSock, cfg.AIODepth)
		loopbackStats = loopbackSock
		loopbackSender = newAIOSender(loopbackAdapter)
	}

	res := resolver.New(netSrc, cfg.SrcIP, cfg.ProbeRate, cfg.ProbeBurst)
	egressPipeline := egress.New(egress.Config{
		SelfIP:     cfg.SrcIP,
		SrcMAC:     cfg.SrcMAC,
		ShardID:    cfg.ShardID,
		ShardCount: cfg.ShardCount,
	}, res, newAIOSender(primaryAdapter), loopbackSender)

	return NewShard(cfg, Deps{
		Primary:       primaryAdapter,
		Loopback:      loopbackAdapter,
		PrimaryStats:  primarySock,
		LoopbackStats: loopbackStats,
		Classifier:    classifier,
		Egress:        egressPipeline,
		Resolver:      res,
		Metrics:       metrics,
	}), nil
}
