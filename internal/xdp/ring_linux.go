//go:build linux

// File: internal/xdp/ring_linux.go
// Author: momentics <momentics@gmail.com>
//
// Raw AF_XDP ring mmap and sockopt plumbing. The kernel exposes four
// rings (RX, TX, FILL, COMPLETION) as mmap'd regions of a single socket
// fd; producer/consumer cursors and descriptor arrays live at
// kernel-reported byte offsets within each region (struct
// xdp_mmap_offsets via getsockopt(XDP_MMAP_OFFSETS)). This file only
// knows how to read/write those cursors; socket_linux.go drives the
// actual RX/TX protocol on top of it.

package xdp

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	afXDP  = 44  // AF_XDP
	solXDP = 283 // SOL_XDP

	optMmapOffsets        = 1
	optRxRing             = 2
	optTxRing             = 3
	optUmemReg            = 4
	optUmemFillRing       = 5
	optUmemCompletionRing = 6
	optStatistics         = 7

	pgoffRxRing   = 0
	pgoffTxRing   = 0x80000000
	pgoffFillRing = 0x100000000
	pgoffCompRing = 0x180000000

	descSize = 16 // sizeof(struct xdp_desc): addr u64, len u32, options u32
)

// ringOffset mirrors struct xdp_ring_offset: byte offsets, within the
// ring's mmap region, of the producer cursor, consumer cursor, and the
// start of the descriptor/address array.
type ringOffset struct {
	Producer uint64
	Consumer uint64
	Desc     uint64
	Flags    uint64
}

// mmapOffsets mirrors struct xdp_mmap_offsets.
type mmapOffsets struct {
	Rx, Tx, Fr, Cr ringOffset
}

// umemReg mirrors struct xdp_umem_reg.
type umemReg struct {
	Addr     uint64
	Len      uint64
	Size     uint32
	Headroom uint32
	Flags    uint32
	_        uint32 // padding to 8-byte alignment
}

// kernelStats mirrors struct xdp_statistics.
type kernelStats struct {
	RxDropped            uint64
	RxInvalidDescs       uint64
	TxInvalidDescs       uint64
	RxRingFull           uint64
	RxFillRingEmptyDescs uint64
	TxRingEmptyDescs     uint64
}

func setsockopt(fd, level, name int, ptr unsafe.Pointer, size uintptr) error {
	_, _, errno := unix.Syscall6(unix.SYS_SETSOCKOPT, uintptr(fd), uintptr(level), uintptr(name),
		uintptr(ptr), size, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func getsockopt(fd, level, name int, ptr unsafe.Pointer, size *uint32) error {
	_, _, errno := unix.Syscall6(unix.SYS_GETSOCKOPT, uintptr(fd), uintptr(level), uintptr(name),
		uintptr(ptr), uintptr(unsafe.Pointer(size)), 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// kernelRing is a thin view over one mmap'd ring region. num must be a
// power of two; idx&mask replaces the kernel's modulo.
type kernelRing struct {
	mem  []byte
	mask uint32
	off  ringOffset
}

func mapRing(fd int, pgoff int64, num uint32, off ringOffset, descBytes uintptr) (kernelRing, error) {
	size := int(off.Desc) + int(uintptr(num)*descBytes)
	mem, err := unix.Mmap(fd, pgoff, size, unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		return kernelRing{}, err
	}
	return kernelRing{mem: mem, mask: num - 1, off: off}, nil
}

func (r *kernelRing) producerPtr() *uint32 {
	return (*uint32)(unsafe.Pointer(&r.mem[r.off.Producer]))
}

func (r *kernelRing) consumerPtr() *uint32 {
	return (*uint32)(unsafe.Pointer(&r.mem[r.off.Consumer]))
}

func (r *kernelRing) loadProducer() uint32 {
	return atomic.LoadUint32(r.producerPtr())
}

func (r *kernelRing) loadConsumer() uint32 {
	return atomic.LoadUint32(r.consumerPtr())
}

func (r *kernelRing) storeProducer(v uint32) {
	atomic.StoreUint32(r.producerPtr(), v)
}

func (r *kernelRing) storeConsumer(v uint32) {
	atomic.StoreUint32(r.consumerPtr(), v)
}

// descAt returns a pointer to the xdp_desc at slot idx of an RX/TX ring.
func (r *kernelRing) descAt(idx uint32) *xdpDesc {
	base := r.off.Desc + uint64(idx&r.mask)*descSize
	return (*xdpDesc)(unsafe.Pointer(&r.mem[base]))
}

// addrAt returns a pointer to the u64 frame address at slot idx of a
// FILL/COMPLETION ring.
func (r *kernelRing) addrAt(idx uint32) *uint64 {
	base := r.off.Desc + uint64(idx&r.mask)*8
	return (*uint64)(unsafe.Pointer(&r.mem[base]))
}

func (r *kernelRing) unmap() error {
	if r.mem == nil {
		return nil
	}
	return unix.Munmap(r.mem)
}

// xdpDesc mirrors struct xdp_desc.
type xdpDesc struct {
	Addr    uint64
	Len     uint32
	Options uint32
}
