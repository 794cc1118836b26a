// Package link implements the spec §3 inbound/outbound link bindings:
// the composite (meta-ring, workspace, chunk-range, cursor) tuples that
// let the classifier and egress pipelines address a ring's payload
// region without either owning the ring or the arena outright. It sits
// above both core/ring and pool so those two packages stay free of each
// other's concerns.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package link

import (
	"github.com/momentics/xdpnet/core/protocol"
	"github.com/momentics/xdpnet/core/ring"
	"github.com/momentics/xdpnet/pool"
)

// InboundLink is what the dispatcher records for each bound inbound ring
// (spec §3): enough to bounds-check a foreign chunk index cheaply before
// the egress pipeline dereferences it.
type InboundLink struct {
	Meta      *ring.MetaRing
	Workspace *pool.Workspace
	Chunk0    ring.Chunk
	Wmark     ring.Chunk

	cursor ring.Cursor
}

// NewInboundLink binds meta to ws's full chunk range. meta is typically
// shared with every other shard's InboundLink over the same upstream
// ring (spec §5: one producer, fanned out to all shards), so each
// binding carries its own read cursor rather than the ring's built-in
// single-consumer one.
func NewInboundLink(meta *ring.MetaRing, ws *pool.Workspace) *InboundLink {
	return &InboundLink{Meta: meta, Workspace: ws, Chunk0: ws.Chunk0(), Wmark: ws.Wmark()}
}

// TryConsume claims the next frag this binding's cursor hasn't yet seen.
func (l *InboundLink) TryConsume() (ring.Frag, uint64, bool) {
	return l.Meta.TryConsumeFrom(&l.cursor)
}

// Contains reports whether c is a valid chunk index for this link's
// workspace (spec §3 invariant: chunk0 <= chunk <= wmark).
func (l *InboundLink) Contains(c ring.Chunk) bool {
	return c.InRange(l.Chunk0, l.Wmark)
}

// Payload returns the chunk's backing bytes, valid only after Contains
// has already confirmed c is in range.
func (l *InboundLink) Payload(c ring.Chunk) []byte {
	return l.Workspace.Slice(c)
}

// OutboundLink is the per-destination binding of spec §3: a meta-ring,
// its backing workspace, and the producer's current write cursor. The
// classifier is this link's sole producer.
type OutboundLink struct {
	Meta      *ring.MetaRing
	Workspace *pool.Workspace
	Chunk0    ring.Chunk
	Wmark     ring.Chunk

	cur ring.Chunk
}

// NewOutboundLink binds meta to ws, with the write cursor starting at
// ws's first chunk.
func NewOutboundLink(meta *ring.MetaRing, ws *pool.Workspace) *OutboundLink {
	return &OutboundLink{
		Meta:      meta,
		Workspace: ws,
		Chunk0:    ws.Chunk0(),
		Wmark:     ws.Wmark(),
		cur:       ws.Chunk0(),
	}
}

// NextChunk returns the chunk the caller should write the next payload
// into, then advances the cursor (wrapping at Wmark per spec §3).
func (l *OutboundLink) NextChunk() ring.Chunk {
	c := l.cur
	l.cur = l.cur.Next(l.Chunk0, l.Wmark, l.Workspace.MTU())
	return c
}

// Payload returns chunk c's backing bytes for the caller to fill.
func (l *OutboundLink) Payload(c ring.Chunk) []byte {
	return l.Workspace.Slice(c)
}

// Publish writes frag to the meta-ring. The caller must have already
// written the chunk's payload bytes (spec §3: payload observed before
// the published seq).
func (l *OutboundLink) Publish(frag ring.Frag) bool {
	return l.Meta.Publish(frag)
}

// PortBinding pairs the outbound link a classified frame's payload is
// copied into with the proto tag that frame should be stamped with.
// Legacy and QUIC transactions share one Link but carry distinct Proto
// values (spec §4.5).
type PortBinding struct {
	Link  *OutboundLink
	Proto protocol.ProtoTag
}

// PortMap is the spec §3 destination-port map: UDP destination port to
// outbound-link binding. Up to six entries; port 0 is never present
// (disabled ports are simply absent from the map).
type PortMap map[uint16]PortBinding
