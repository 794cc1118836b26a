//go:build linux

// File: pool/arena_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux arena allocator: anonymous, shared mmap region so a Workspace can
// back the UMEM of an AF_XDP socket or be handed to a peer process,
// mirroring the teacher's platform-specific pool backends
// (pool/bufferpool_linux.go, pool/numapool_linux.go).

package pool

import "golang.org/x/sys/unix"

func allocArena(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANONYMOUS)
}

func freeArena(b []byte) error {
	if b == nil {
		return nil
	}
	return unix.Munmap(b)
}
