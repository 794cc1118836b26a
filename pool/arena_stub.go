//go:build !linux

// File: pool/arena_stub.go
// Author: momentics <momentics@gmail.com>
//
// Non-Linux fallback: a plain heap slice. AF_XDP itself is Linux-only
// (internal/xdp carries the same build-tag split), so this path only
// exists to keep core/ring and pool buildable and testable off-target.

package pool

func allocArena(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func freeArena(b []byte) error {
	return nil
}
