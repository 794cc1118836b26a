//go:build linux

// File: internal/xdp/socket_linux.go
// Author: momentics <momentics@gmail.com>
//
// Socket drives one AF_XDP socket's RX/TX/FILL/COMPLETION protocol
// (spec §4.2). Privileged steps — the sockaddr_xdp bind and the XSKMAP
// insertion — are delegated to the injected api.Bootstrap; everything
// else (UMEM registration, ring mmap, descriptor bookkeeping) is done
// here since it requires no elevated privilege beyond the socket fd
// itself.

package xdp

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/momentics/xdpnet/api"
	"github.com/momentics/xdpnet/core/ring"
	"github.com/momentics/xdpnet/pool"
)

// Socket owns one AF_XDP file descriptor bound to one NIC queue.
type Socket struct {
	fd   int
	umem *pool.Workspace

	free []ring.Chunk // free UMEM frames, stack-ordered

	rx, tx, fill, comp kernelRing

	cfg Config

	localFillStarved uint64
}

// Open creates, registers and binds one AF_XDP socket over umem,
// completing the full spec §4.2 "activate" sequence: raw socket
// creation and UMEM/ring setup here, bind and XSKMAP insertion via bs.
func Open(umem *pool.Workspace, bs api.Bootstrap, cfg Config) (*Socket, error) {
	fd, err := unix.Socket(afXDP, unix.SOCK_RAW, 0)
	if err != nil {
		return nil, fmt.Errorf("xdp: socket: %w", err)
	}

	base := umem.Base()
	reg := umemReg{
		Addr: uint64(uintptr(unsafe.Pointer(&base[0]))),
		Len:  uint64(len(base)),
		Size: umem.MTU(),
	}
	if err := setsockopt(fd, solXDP, optUmemReg, unsafe.Pointer(&reg), unsafe.Sizeof(reg)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("xdp: XDP_UMEM_REG: %w", err)
	}

	for _, rs := range []struct {
		opt   int
		depth uint32
	}{
		{optUmemFillRing, cfg.FillDepth},
		{optUmemCompletionRing, cfg.CompDepth},
		{optRxRing, cfg.RxDepth},
		{optTxRing, cfg.TxDepth},
	} {
		if err := setsockopt(fd, solXDP, rs.opt, unsafe.Pointer(&rs.depth), unsafe.Sizeof(rs.depth)); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("xdp: ring size setsockopt(%d): %w", rs.opt, err)
		}
	}

	if err := bs.BindXSK(fd, cfg.Ifindex, cfg.QueueID, cfg.Mode); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("xdp: bind: %w", err)
	}

	var off mmapOffsets
	size := uint32(unsafe.Sizeof(off))
	if err := getsockopt(fd, solXDP, optMmapOffsets, unsafe.Pointer(&off), &size); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("xdp: XDP_MMAP_OFFSETS: %w", err)
	}

	fillRing, err := mapRing(fd, pgoffFillRing, cfg.FillDepth, off.Fr, 8)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("xdp: mmap fill ring: %w", err)
	}
	compRing, err := mapRing(fd, pgoffCompRing, cfg.CompDepth, off.Cr, 8)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("xdp: mmap completion ring: %w", err)
	}
	rxRing, err := mapRing(fd, pgoffRxRing, cfg.RxDepth, off.Rx, descSize)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("xdp: mmap rx ring: %w", err)
	}
	txRing, err := mapRing(fd, pgoffTxRing, cfg.TxDepth, off.Tx, descSize)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("xdp: mmap tx ring: %w", err)
	}

	if err := bs.ActivateXSK(fd, cfg.XSKMapFD, cfg.QueueID); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("xdp: activate: %w", err)
	}

	s := &Socket{
		fd:   fd,
		umem: umem,
		rx:   rxRing,
		tx:   txRing,
		fill: fillRing,
		comp: compRing,
		cfg:  cfg,
	}

	numFrames := len(base) / int(umem.MTU())
	s.free = make([]ring.Chunk, 0, numFrames)
	for i := 0; i < numFrames; i++ {
		s.free = append(s.free, ring.Chunk(i)*ring.Chunk(umem.MTU()))
	}
	s.refillFrom(cfg.FillDepth)

	return s, nil
}

func (s *Socket) popFree() (ring.Chunk, bool) {
	if len(s.free) == 0 {
		return 0, false
	}
	c := s.free[len(s.free)-1]
	s.free = s.free[:len(s.free)-1]
	return c, true
}

func (s *Socket) pushFree(c ring.Chunk) {
	s.free = append(s.free, c)
}

// refillFrom pushes up to max free frames into the FILL ring.
func (s *Socket) refillFrom(max uint32) int {
	prod := s.fill.loadProducer()
	cons := s.fill.loadConsumer()
	room := (s.cfg.FillDepth - (prod - cons))
	if room > max {
		room = max
	}
	n := 0
	for ; n < int(room); n++ {
		c, ok := s.popFree()
		if !ok {
			s.localFillStarved++
			break
		}
		*s.fill.addrAt(prod) = uint64(c)
		prod++
	}
	if n > 0 {
		s.fill.storeProducer(prod)
	}
	return n
}

// Service drains COMPLETION back into the free pool, refills FILL, and
// hands every pending RX descriptor to rx in turn, recycling its frame
// once the callback returns. Reports busy iff any ring made progress.
func (s *Socket) Service(rx RxCallback) (bool, error) {
	busy := false

	cProd := s.comp.loadProducer()
	cCons := s.comp.loadConsumer()
	for i := cCons; i != cProd; i++ {
		addr := *s.comp.addrAt(i)
		s.pushFree(ring.Chunk(addr))
		busy = true
	}
	if cProd != cCons {
		s.comp.storeConsumer(cProd)
	}

	rProd := s.rx.loadProducer()
	rCons := s.rx.loadConsumer()
	for i := rCons; i != rProd; i++ {
		desc := s.rx.descAt(i)
		frameBase := s.umem.Base()[desc.Addr:]
		rx(frameBase[:desc.Len])
		s.pushFree(ring.Chunk(desc.Addr))
		busy = true
	}
	if rProd != rCons {
		s.rx.storeConsumer(rProd)
	}

	if n := s.refillFrom(s.cfg.FillDepth); n > 0 {
		busy = true
	}

	return busy, nil
}

// Tx enqueues up to len(frames) descriptors, copying each into a UMEM
// frame drawn from the free pool. Returns the number actually enqueued;
// the remainder is the caller's to count as dropped (spec §4.2: "excess
// is dropped").
func (s *Socket) Tx(frames [][]byte) (int, error) {
	prod := s.tx.loadProducer()
	cons := s.tx.loadConsumer()
	avail := s.cfg.TxDepth - (prod - cons)

	sent := 0
	for _, f := range frames {
		if uint32(sent) >= avail {
			break
		}
		c, ok := s.popFree()
		if !ok {
			break
		}
		dst := s.umem.Slice(c)
		n := copy(dst, f)
		desc := s.tx.descAt(prod)
		desc.Addr = uint64(c)
		desc.Len = uint32(n)
		prod++
		sent++
	}
	if sent > 0 {
		s.tx.storeProducer(prod)
		unix.Sendto(s.fd, nil, unix.MSG_DONTWAIT, nil)
	}
	return sent, nil
}

// Stats merges the kernel-reported counters (spec §4.2) with the
// locally observed FILL-ring starvation count.
func (s *Socket) Stats() Stats {
	var ks kernelStats
	size := uint32(unsafe.Sizeof(ks))
	_ = getsockopt(s.fd, solXDP, optStatistics, unsafe.Pointer(&ks), &size)
	return Stats{
		RxDropped:       ks.RxDropped,
		RxInvalidDescs:  ks.RxInvalidDescs,
		TxInvalidDescs:  ks.TxInvalidDescs,
		RxRingFull:      ks.RxRingFull,
		RxFillRingEmpty: ks.RxFillRingEmptyDescs + s.localFillStarved,
		TxRingEmpty:     ks.TxRingEmptyDescs,
	}
}

// Shutdown unmaps all four rings and closes the socket fd. The UMEM
// workspace itself is owned by the caller and outlives the socket.
func (s *Socket) Shutdown() error {
	var firstErr error
	for _, r := range []*kernelRing{&s.rx, &s.tx, &s.fill, &s.comp} {
		if err := r.unmap(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := unix.Close(s.fd); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
