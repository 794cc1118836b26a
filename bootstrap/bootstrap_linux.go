//go:build linux

// File: bootstrap/bootstrap_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux implementation of api.Bootstrap: loads the redirect program,
// creates the port allow-list and XSKMAP, attaches via cilium/ebpf/link,
// and binds/activates individual AF_XDP sockets with raw sockaddr_xdp
// syscalls.

package bootstrap

import (
	"fmt"
	"sync"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
	"golang.org/x/sys/unix"

	"github.com/momentics/xdpnet/api"
)

// Bootstrap implements api.Bootstrap against the real kernel. It retains
// every program, map and link it creates so the underlying fds stay open
// for as long as the Bootstrap itself is alive.
type Bootstrap struct {
	mu    sync.Mutex
	progs []*ebpf.Program
	links []link.Link
	maps  map[int]*ebpf.Map
}

// New returns a Bootstrap ready to install and bind XDP sockets.
func New() *Bootstrap {
	return &Bootstrap{maps: make(map[int]*ebpf.Map)}
}

func progFlags(mode api.ProgMode) link.XDPAttachFlags {
	if mode == api.ProgModeSKB {
		return link.XDPGenericMode
	}
	return link.XDPDriverMode
}

// InstallXDP loads the redirect program for ifindex, wiring it to a fresh
// port allow-list populated from udpPortCandidates and a fresh XSKMAP the
// caller later activates sockets into via ActivateXSK.
func (b *Bootstrap) InstallXDP(ifindex int, srcIP uint32, udpPortCandidates []uint16, mode api.ProgMode) (int, int, error) {
	portMap, err := ebpf.NewMap(&ebpf.MapSpec{
		Name:       "xdpnet_ports",
		Type:       ebpf.Hash,
		KeySize:    2,
		ValueSize:  1,
		MaxEntries: uint32(len(udpPortCandidates)),
	})
	if err != nil {
		return 0, 0, fmt.Errorf("bootstrap: port map: %w", err)
	}
	for _, port := range udpPortCandidates {
		if err := portMap.Put(port, uint8(1)); err != nil {
			portMap.Close()
			return 0, 0, fmt.Errorf("bootstrap: port map put %d: %w", port, err)
		}
	}

	xsksMap, err := ebpf.NewMap(&ebpf.MapSpec{
		Name:       "xdpnet_xsks",
		Type:       ebpf.XSKMap,
		KeySize:    4,
		ValueSize:  4,
		MaxEntries: 64,
	})
	if err != nil {
		portMap.Close()
		return 0, 0, fmt.Errorf("bootstrap: xsks map: %w", err)
	}

	prog, err := ebpf.NewProgram(&ebpf.ProgramSpec{
		Name:         "xdpnet_redirect",
		Type:         ebpf.XDP,
		License:      "GPL",
		Instructions: redirectProgram(portMap.FD(), xsksMap.FD()),
	})
	if err != nil {
		portMap.Close()
		xsksMap.Close()
		return 0, 0, fmt.Errorf("bootstrap: load program: %w", err)
	}

	l, err := link.AttachXDP(link.XDPOptions{
		Program:   prog,
		Interface: ifindex,
		Flags:     progFlags(mode),
	})
	if err != nil && mode == api.ProgModeNative {
		// driver mode unsupported by this NIC; fall back to generic.
		l, err = link.AttachXDP(link.XDPOptions{
			Program:   prog,
			Interface: ifindex,
			Flags:     link.XDPGenericMode,
		})
	}
	if err != nil {
		prog.Close()
		portMap.Close()
		xsksMap.Close()
		return 0, 0, fmt.Errorf("bootstrap: attach xdp: %w", err)
	}

	b.mu.Lock()
	b.progs = append(b.progs, prog)
	b.links = append(b.links, l)
	b.maps[xsksMap.FD()] = xsksMap
	b.maps[portMap.FD()] = portMap
	b.mu.Unlock()

	// A link type with no fd of its own reports the program's fd instead.
	linkFD := prog.FD()
	if fl, ok := l.(interface{ FD() int }); ok {
		linkFD = fl.FD()
	}
	return linkFD, xsksMap.FD(), nil
}

// BindXSK binds a raw AF_XDP socket fd to ifindex/queueID via
// bind(2) with a sockaddr_xdp, matching the mode the socket's UMEM and
// rings were already set up with.
func (b *Bootstrap) BindXSK(xskFD int, ifindex, queueID int, mode api.XDPMode) error {
	var flags uint16
	if mode == api.XDPModeZeroCopy {
		flags |= unix.XDP_ZEROCOPY
	} else {
		flags |= unix.XDP_COPY
	}
	sa := &unix.SockaddrXDP{
		Flags:   flags,
		Ifindex: uint32(ifindex),
		QueueID: uint32(queueID),
	}
	if err := unix.Bind(xskFD, sa); err != nil {
		return fmt.Errorf("bootstrap: bind xsk: %w", err)
	}
	return nil
}

// ActivateXSK inserts the bound socket fd into the XSKMAP identified by
// xskMapFD at slot queueID, matching InstallXDP's rx_queue_index lookup.
func (b *Bootstrap) ActivateXSK(xskFD, xskMapFD, queueID int) error {
	b.mu.Lock()
	m, ok := b.maps[xskMapFD]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("bootstrap: unknown xsk map fd %d", xskMapFD)
	}
	if err := m.Put(uint32(queueID), uint32(xskFD)); err != nil {
		return fmt.Errorf("bootstrap: activate xsk: %w", err)
	}
	return nil
}

// Close detaches every installed program and releases every map this
// Bootstrap created.
func (b *Bootstrap) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var firstErr error
	for _, l := range b.links {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, p := range b.progs {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, m := range b.maps {
		if err := m.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.links = nil
	b.progs = nil
	b.maps = make(map[int]*ebpf.Map)
	return firstErr
}
