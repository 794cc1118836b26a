// Package pool
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package pool

import (
	"sync"

	"github.com/momentics/xdpnet/api"
)

// SyncObjectPool is a reset-on-reuse object pool implementing
// api.ObjectPool[T], backed by sync.Pool. Grounded on the same
// channel/pool-backed reuse pattern as SyncBytePool
// (pool/base_bufferpool.go), generalized with Go generics since the
// pooled value here is a whole object rather than a byte slice.
type SyncObjectPool[T any] struct {
	pool sync.Pool
}

// NewSyncObjectPool returns a pool that calls newFn to build a fresh T
// whenever Get finds the pool empty.
func NewSyncObjectPool[T any](newFn func() T) *SyncObjectPool[T] {
	return &SyncObjectPool[T]{pool: sync.Pool{New: func() any { return newFn() }}}
}

// Get returns a pooled T, or a freshly constructed one if none is free.
func (p *SyncObjectPool[T]) Get() T {
	return p.pool.Get().(T)
}

// Put returns obj to the pool for reuse. Callers must reset obj's
// contents themselves before handing it to the next Get (the pool has
// no knowledge of T's internal state).
func (p *SyncObjectPool[T]) Put(obj T) {
	p.pool.Put(obj)
}

var _ api.ObjectPool[int] = (*SyncObjectPool[int])(nil)
