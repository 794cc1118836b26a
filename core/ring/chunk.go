// Package ring implements the C1 ring transport primitives: the
// chunk-addressed data region and the SPSC meta-ring described in
// spec §3/§4.1.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package ring

// Chunk is a data-region address expressed as a byte offset from the
// workspace base. Chunks form a compacted ring: chunk0 is the low bound,
// wmark the last valid starting index.
type Chunk uint32

// Next advances to the next MTU-aligned chunk, wrapping to chunk0 once
// the advance would move past wmark. mtu is the fixed chunk stride.
func (c Chunk) Next(chunk0, wmark Chunk, mtu uint32) Chunk {
	next := c + Chunk(mtu)
	if next > wmark {
		return chunk0
	}
	return next
}

// InRange reports whether c lies within [chunk0, wmark], the bounds
// check every consumer of a foreign chunk index must perform before
// dereferencing it (spec §3 invariant).
func (c Chunk) InRange(chunk0, wmark Chunk) bool {
	return c >= chunk0 && c <= wmark
}
