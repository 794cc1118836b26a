// Package pool
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package pool

import (
	"sync"

	"github.com/momentics/xdpnet/api"
)

const bytePoolSlotDepth = 64

// SyncBytePool is a capacity-classed free list of reusable byte slices,
// implementing api.BytePool. Grounded on the teacher's
// baseBufferPool channel-backed free list (pool/base_bufferpool.go),
// generalized from its NUMA-node channel map to a single capacity-keyed
// one: this pool serves transient, fixed-shape buffers (ARP probe
// frames) rather than NUMA-pinned RX/TX buffers, so there is no NUMA
// preference to key on.
type SyncBytePool struct {
	mu   sync.Mutex
	free map[int]chan []byte
}

// NewSyncBytePool returns an empty pool; slots are created lazily per
// requested capacity.
func NewSyncBytePool() *SyncBytePool {
	return &SyncBytePool{free: make(map[int]chan []byte)}
}

func (p *SyncBytePool) channel(n int) chan []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.free[n]
	if !ok {
		ch = make(chan []byte, bytePoolSlotDepth)
		p.free[n] = ch
	}
	return ch
}

// Acquire returns a slice of exactly n bytes, reused from the pool when
// one of that capacity is available.
func (p *SyncBytePool) Acquire(n int) []byte {
	select {
	case buf := <-p.channel(n):
		return buf[:n]
	default:
		return make([]byte, n)
	}
}

// Release returns buf to the pool keyed by its capacity. A full slot
// channel silently drops the buffer instead of blocking.
func (p *SyncBytePool) Release(buf []byte) {
	n := cap(buf)
	select {
	case p.channel(n) <- buf[:0:n]:
	default:
	}
}

var _ api.BytePool = (*SyncBytePool)(nil)
