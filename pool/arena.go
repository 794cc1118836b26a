// Package pool implements the pre-sized chunk arena (spec §3 "Chunk")
// backing every ring's data region. There is no dynamic allocation on the
// hot path: a Workspace is sized once at bootstrap and lives until
// process shutdown, mirroring the teacher's NUMA-segmented buffer pools
// (pool/bufferpool.go, pool/numapool.go) but trading their sync.Pool
// reuse model for a flat, chunk-indexed arena — frags address payload by
// (workspace base, chunk index) rather than by handing out and returning
// individual buffers.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package pool

import (
	"fmt"

	"github.com/momentics/xdpnet/core/ring"
)

// Workspace is a contiguous arena of numChunks MTU-sized slots.
type Workspace struct {
	base   []byte
	mtu    uint32
	chunk0 ring.Chunk
	wmark  ring.Chunk
}

// NewWorkspace allocates an arena of numChunks chunks of mtu bytes each.
// On Linux the backing memory is an anonymous mmap region suitable for
// sharing across processes (internal/xdp maps XDP UMEM onto the same
// kind of region); elsewhere it falls back to a regular heap slice.
func NewWorkspace(numChunks int, mtu uint32) (*Workspace, error) {
	if numChunks <= 0 || mtu == 0 {
		return nil, fmt.Errorf("pool: invalid workspace size (chunks=%d mtu=%d)", numChunks, mtu)
	}
	base, err := allocArena(numChunks * int(mtu))
	if err != nil {
		return nil, err
	}
	return &Workspace{
		base:   base,
		mtu:    mtu,
		chunk0: 0,
		wmark:  ring.Chunk((numChunks - 1) * int(mtu)),
	}, nil
}

// Base returns the raw backing slice, used only to compute shared-memory
// offsets for cross-process bindings; callers should prefer Slice.
func (w *Workspace) Base() []byte { return w.base }

// Chunk0 is the lowest valid chunk index.
func (w *Workspace) Chunk0() ring.Chunk { return w.chunk0 }

// Wmark is the highest valid chunk index.
func (w *Workspace) Wmark() ring.Chunk { return w.wmark }

// MTU is the fixed per-chunk stride.
func (w *Workspace) MTU() uint32 { return w.mtu }

// Slice returns the MTU-sized view of the chunk at index c. Callers must
// have already bounds-checked c against Chunk0()/Wmark() (spec §3
// invariant) — Slice panics on an out-of-range chunk rather than
// silently truncating, since that would mask a protocol violation.
func (w *Workspace) Slice(c ring.Chunk) []byte {
	start := int(c)
	end := start + int(w.mtu)
	return w.base[start:end]
}

// Release frees the arena's backing memory. Called once at shard
// shutdown; Workspaces are never resized or partially freed.
func (w *Workspace) Release() error {
	return freeArena(w.base)
}
