//go:build !linux

// File: bootstrap/bootstrap_stub.go
// Author: momentics <momentics@gmail.com>
//
// AF_XDP and the XDP hook are Linux-only. Elsewhere every call fails so
// higher layers build and unit-test cleanly on any platform.

package bootstrap

import "github.com/momentics/xdpnet/api"

// Bootstrap is an unusable placeholder on non-Linux platforms.
type Bootstrap struct{}

// New returns a Bootstrap whose methods always report api.ErrNotSupported.
func New() *Bootstrap { return &Bootstrap{} }

func (b *Bootstrap) InstallXDP(ifindex int, srcIP uint32, udpPortCandidates []uint16, mode api.ProgMode) (int, int, error) {
	return 0, 0, api.ErrNotSupported
}

func (b *Bootstrap) BindXSK(xskFD int, ifindex, queueID int, mode api.XDPMode) error {
	return api.ErrNotSupported
}

func (b *Bootstrap) ActivateXSK(xskFD, xskMapFD, queueID int) error {
	return api.ErrNotSupported
}

func (b *Bootstrap) Close() error { return nil }
