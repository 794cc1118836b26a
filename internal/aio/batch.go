// Package aio implements the C3 AIO adapter: a uniform batched
// send/receive interface layered over the raw internal/xdp socket
// driver, so the classifier and egress pipelines never touch ring
// descriptors directly.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package aio

import "github.com/momentics/xdpnet/api"

// SliceBatch is an api.Batch[T] backed by a reusable slice, the concrete
// batch type C3 flushes to registered send/recv callbacks. Push, Reset,
// Get and Len do not allocate within capacity; Slice and Split share the
// backing array without copying items, but each allocates a new
// SliceBatch header.
type SliceBatch[T any] struct {
	items []T
}

var _ api.Batch[[]byte] = (*SliceBatch[[]byte])(nil)

// NewSliceBatch allocates a batch with capacity cap and zero length.
func NewSliceBatch[T any](capacity int) *SliceBatch[T] {
	return &SliceBatch[T]{items: make([]T, 0, capacity)}
}

func (b *SliceBatch[T]) Len() int { return len(b.items) }

func (b *SliceBatch[T]) Get(index int) T {
	if index < 0 || index >= len(b.items) {
		var zero T
		return zero
	}
	return b.items[index]
}

func (b *SliceBatch[T]) Slice(start, end int) api.Batch[T] {
	return &SliceBatch[T]{items: b.items[start:end]}
}

func (b *SliceBatch[T]) Underlying() []T { return b.items }

func (b *SliceBatch[T]) Split(idx int) (first, second api.Batch[T]) {
	return &SliceBatch[T]{items: b.items[:idx]}, &SliceBatch[T]{items: b.items[idx:]}
}

// Reset empties the batch; the backing array is kept for reuse on the
// next flush cycle, matching spec §4.3's "no dynamic allocation" intent.
func (b *SliceBatch[T]) Reset() { b.items = b.items[:0] }

// Push appends one item, growing the backing array only past its
// original capacity — the hot path never exceeds aio_depth so this never
// allocates in steady state.
func (b *SliceBatch[T]) Push(item T) { b.items = append(b.items, item) }
