//go:build !linux

// File: internal/xdp/socket_stub.go
// Author: momentics <momentics@gmail.com>
//
// AF_XDP exists only on Linux. Elsewhere Open always fails so that
// higher layers (dispatcher, cmd wiring) build and unit-test cleanly on
// any platform, matching the affinity package's setAffinityPlatform split.

package xdp

import (
	"github.com/momentics/xdpnet/api"
	"github.com/momentics/xdpnet/pool"
)

// Socket is an unusable placeholder on non-Linux platforms.
type Socket struct{}

func Open(umem *pool.Workspace, bs api.Bootstrap, cfg Config) (*Socket, error) {
	return nil, api.ErrNotSupported
}

func (s *Socket) Service(rx RxCallback) (bool, error) { return false, api.ErrNotSupported }

func (s *Socket) Tx(frames [][]byte) (int, error) { return 0, api.ErrNotSupported }

func (s *Socket) Stats() Stats { return Stats{} }

func (s *Socket) Shutdown() error { return api.ErrNotSupported }
