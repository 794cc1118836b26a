package dispatcher

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/momentics/xdpnet/control"
)

func TestApplyFromStoreSetsPortsAndQueueSizes(t *testing.T) {
	cs := control.NewConfigStore()
	cs.SetConfig(map[string]any{
		"shred_listen_port": uint16(8001),
		"rx_queue_size":     uint32(2048),
	})

	var cfg Config
	cfg.ApplyFromStore(cs)

	if cfg.Ports.ShredListen != 8001 {
		t.Fatalf("ShredListen = %d, want 8001", cfg.Ports.ShredListen)
	}
	if cfg.RxQueueSize != 2048 {
		t.Fatalf("RxQueueSize = %d, want 2048", cfg.RxQueueSize)
	}
	// A key the store doesn't carry leaves cfg's zero value untouched.
	if cfg.Ports.GossipListen != 0 {
		t.Fatalf("GossipListen = %d, want 0 (not present in the snapshot)", cfg.Ports.GossipListen)
	}
}

func TestApplyFromStoreReappliesOnReload(t *testing.T) {
	cs := control.NewConfigStore()
	var cfg Config
	cfg.ApplyFromStore(cs)

	var fired int32
	control.RegisterReloadHook(func() { atomic.AddInt32(&fired, 1) })

	cs.SetConfig(map[string]any{"gossip_listen_port": uint16(9001)})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(&fired) > 0 && cfg.Ports.GossipListen == 9001 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("GossipListen = %d, fired = %d; hot reload hook never propagated", cfg.Ports.GossipListen, atomic.LoadInt32(&fired))
}
