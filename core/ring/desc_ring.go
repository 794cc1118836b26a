// Package ring
// Author: momentics <momentics@gmail.com>
//
// DescRing is a generic SPSC ring of plain entries. The XDP socket
// driver (C2) does not use it; its kernel rings are mmap'd views of
// their own. It implements api.Ring[T] directly, unlike
// MetaRing which carries an extra sequence number frags need for
// sharding.

package ring

import (
	"sync/atomic"

	"github.com/momentics/xdpnet/api"
)

// DescRing is a fixed-depth, overwrite-on-lap SPSC ring of T.
type DescRing[T any] struct {
	entries []T
	mask    uint64

	prodSeq   uint64
	published atomic.Uint64
	consSeq   uint64
}

var _ api.Ring[int] = (*DescRing[int])(nil)

// NewDescRing allocates a ring with at least the requested depth.
func NewDescRing[T any](depth uint64) *DescRing[T] {
	depth = nextPow2(depth)
	return &DescRing[T]{entries: make([]T, depth), mask: depth - 1}
}

func (r *DescRing[T]) Depth() uint64 { return uint64(len(r.entries)) }

func (r *DescRing[T]) Seq() uint64 { return r.published.Load() }

func (r *DescRing[T]) Publish(entry T) bool {
	idx := r.prodSeq & r.mask
	r.entries[idx] = entry
	r.prodSeq++
	r.published.Store(r.prodSeq)
	return true
}

func (r *DescRing[T]) TryConsume() (T, bool) {
	pub := r.published.Load()
	if r.consSeq >= pub {
		var zero T
		return zero, false
	}
	depth := uint64(len(r.entries))
	if pub-r.consSeq > depth {
		r.consSeq = pub - depth
	}
	idx := r.consSeq & r.mask
	e := r.entries[idx]
	r.consSeq++
	return e, true
}

// Len reports the number of unconsumed entries currently available.
func (r *DescRing[T]) Len() int {
	return int(r.published.Load() - r.consSeq)
}
