package dispatcher

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/momentics/xdpnet/api"
	"github.com/momentics/xdpnet/classify"
	"github.com/momentics/xdpnet/control"
)

// maxInboundLinks is the spec §3 bound on inbound-ring bindings one
// dispatcher shard can carry.
const maxInboundLinks = 32

// Config is the spec §6 per-shard configuration surface, widened with
// the operational fields (ifindex, XSKMAP fd, sharding, cadence) a real
// bootstrap needs but that the spec leaves to the topology/config layer
// it excludes from scope.
type Config struct {
	// Interface names the primary NIC for logging; Ifindex is what
	// activation actually binds against.
	Interface string
	Ifindex   int
	QueueID   int
	XSKMapFD  int

	// LoopbackIfindex, when non-zero, is the loopback device's ifindex.
	// PrimaryIsLoopback signals that Interface already is the loopback
	// device, in which case no second socket is ever bound (spec §3:
	// "the loopback XDP socket exists iff this is shard 0 and the
	// primary interface is not itself loopback").
	LoopbackIfindex   int
	PrimaryIsLoopback bool

	SrcIP  uint32
	SrcMAC api.MAC

	RxQueueSize uint32
	TxQueueSize uint32
	AIODepth    int
	ZeroCopy    bool

	Ports classify.PortMapConfig

	ShardID    int
	ShardCount int
	// CPUID selects the logical core Run pins this shard's thread to;
	// a negative value skips affinity pinning (spec §5: one shard per
	// core, no internal multithreading).
	CPUID int

	// UMEMChunks sizes each XDP socket's UMEM arena, in MTU-sized
	// frames. OutboundRingChunks/OutboundRingDepth size each of the
	// four classifier destination rings (spec §3 destination-port map).
	UMEMChunks         int
	OutboundRingChunks int
	OutboundRingDepth  uint64

	ProbeRate  rate.Limit
	ProbeBurst int

	// HousekeepingPeriod and MetricsPeriod gate phases 3 and 4 of the
	// poll loop (spec §4.7: both rate-limited).
	HousekeepingPeriod time.Duration
	MetricsPeriod      time.Duration
}

// The control.ConfigStore keys ApplyFromStore reads, naming the six
// listen ports and two XDP queue-size knobs spec §6 leaves to the
// topology/config layer.
const (
	cfgKeyShredListen             = "shred_listen_port"
	cfgKeyQUICTransactionListen   = "quic_transaction_listen_port"
	cfgKeyLegacyTransactionListen = "legacy_transaction_listen_port"
	cfgKeyGossipListen            = "gossip_listen_port"
	cfgKeyRepairIntakeListen      = "repair_intake_listen_port"
	cfgKeyRepairServeListen       = "repair_serve_listen_port"
	cfgKeyRxQueueSize             = "rx_queue_size"
	cfgKeyTxQueueSize             = "tx_queue_size"
)

// ApplyFromStore overlays the six listen ports and the two XDP queue-size
// knobs onto cfg from cs's current snapshot, leaving any key cs doesn't
// carry at cfg's existing value. It then registers itself as a reload
// listener on cs so a later SetConfig call re-applies the same overlay
// and announces the change to any other component listening via
// control.RegisterReloadHook (e.g. a metrics sink that wants to flush
// an immediate snapshot after a live reload).
func (cfg *Config) ApplyFromStore(cs *control.ConfigStore) {
	apply := func() {
		snap := cs.GetSnapshot()
		if v, ok := snap[cfgKeyShredListen].(uint16); ok {
			cfg.Ports.ShredListen = v
		}
		if v, ok := snap[cfgKeyQUICTransactionListen].(uint16); ok {
			cfg.Ports.QUICTransactionListen = v
		}
		if v, ok := snap[cfgKeyLegacyTransactionListen].(uint16); ok {
			cfg.Ports.LegacyTransactionListen = v
		}
		if v, ok := snap[cfgKeyGossipListen].(uint16); ok {
			cfg.Ports.GossipListen = v
		}
		if v, ok := snap[cfgKeyRepairIntakeListen].(uint16); ok {
			cfg.Ports.RepairIntakeListen = v
		}
		if v, ok := snap[cfgKeyRepairServeListen].(uint16); ok {
			cfg.Ports.RepairServeListen = v
		}
		if v, ok := snap[cfgKeyRxQueueSize].(uint32); ok {
			cfg.RxQueueSize = v
		}
		if v, ok := snap[cfgKeyTxQueueSize].(uint32); ok {
			cfg.TxQueueSize = v
		}
	}
	apply()
	cs.OnReload(func() {
		apply()
		control.TriggerHotReload()
	})
}
