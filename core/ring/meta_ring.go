// Package ring
// Author: momentics <momentics@gmail.com>
//
// MetaRing is the lock-free SPSC meta-ring of spec §4.1: producer owns a
// local seq counter, publishes an entry by writing it then advancing a
// published sequence cell with release semantics, and the consumer reads
// once it observes the advanced sequence. There is no dynamic allocation
// and no CAS loop — with exactly one producer and one consumer there is
// nothing to contend on, unlike the teacher's MPMC RingBuffer which needs
// a compare-and-swap per slot (core/concurrency/ring.go in the teacher
// repo). The backing slice may be a view over shared (mmap'd) memory, so
// this primitive works across process boundaries as spec §4.1 requires.

package ring

import (
	"sync/atomic"

	"github.com/momentics/xdpnet/core/protocol"
)

// Frag is one meta-ring entry (spec §3).
type Frag struct {
	Sig    protocol.Sig
	Chunk  Chunk
	Size   uint32
	Ctl    uint32
	TsOrig int64
	TsPub  int64
}

// MetaRing is a fixed-depth SPSC ring of Frag entries backed by a plain
// slice; depth is rounded up to a power of two.
type MetaRing struct {
	entries []Frag
	mask    uint64

	prodSeq uint64 // producer-owned

	published atomic.Uint64 // release-published to the consumer

	consSeq uint64 // consumer-owned
}

// NewMetaRing allocates a ring with at least the requested depth.
func NewMetaRing(depth uint64) *MetaRing {
	depth = nextPow2(depth)
	return &MetaRing{entries: make([]Frag, depth), mask: depth - 1}
}

func nextPow2(n uint64) uint64 {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// Depth returns the ring's fixed capacity.
func (r *MetaRing) Depth() uint64 { return uint64(len(r.entries)) }

// Seq returns the producer's current published sequence number.
func (r *MetaRing) Seq() uint64 { return r.published.Load() }

// Publish writes entry into the producer's current slot and advances the
// published sequence. The caller must have already written the chunk's
// payload bytes, so payload visibility piggybacks on this same barrier
// (spec §3: payload observed before the incremented seq).
func (r *MetaRing) Publish(entry Frag) bool {
	idx := r.prodSeq & r.mask
	r.entries[idx] = entry
	r.prodSeq++
	r.published.Store(r.prodSeq)
	return true
}

// TryConsume returns the next unconsumed entry along with the global
// sequence number it was published at, resyncing past any entries the
// producer has already overwritten (a lapped consumer) per the
// overwrite-after-lap policy of spec §4.1. The returned seq is what the
// egress pipeline's `seq mod N` sharding check (spec §4.6) operates on.
func (r *MetaRing) TryConsume() (entry Frag, seq uint64, ok bool) {
	pub := r.published.Load()
	if r.consSeq >= pub {
		return Frag{}, 0, false
	}
	depth := uint64(len(r.entries))
	if pub-r.consSeq > depth {
		r.consSeq = pub - depth
	}
	idx := r.consSeq & r.mask
	e := r.entries[idx]
	seq = r.consSeq
	r.consSeq++
	return e, seq, true
}

// Cursor is one reader's independent position into a MetaRing. The
// dispatcher's inbound rings have a single producer (a peer stage) but
// are fanned out to every shard (spec §4.7/§5: "a given inbound ring has
// exactly one shard responsible for any given seq"), so each shard needs
// its own read position over the same shared entries rather than
// contending on the ring's built-in consSeq.
type Cursor struct {
	seq uint64
}

// TryConsumeFrom advances c independently of the ring's own TryConsume,
// letting multiple readers share one ring. Entries this cursor laps are
// skipped exactly like TryConsume's resync, since every reader must
// observe the same publish order to agree on ownership by seq.
func (r *MetaRing) TryConsumeFrom(c *Cursor) (entry Frag, seq uint64, ok bool) {
	pub := r.published.Load()
	if c.seq >= pub {
		return Frag{}, 0, false
	}
	depth := uint64(len(r.entries))
	if pub-c.seq > depth {
		c.seq = pub - depth
	}
	idx := c.seq & r.mask
	e := r.entries[idx]
	seq = c.seq
	c.seq++
	return e, seq, true
}
