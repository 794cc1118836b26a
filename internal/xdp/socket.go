package xdp

import "github.com/momentics/xdpnet/api"

// Config is the platform-neutral set of parameters needed to activate one
// AF_XDP socket against one NIC queue (spec §6 per-shard configuration
// surface, narrowed to what C2 itself needs).
type Config struct {
	Ifindex   int
	QueueID   int
	XSKMapFD  int
	Mode      api.XDPMode
	ProgMode  api.ProgMode
	RxDepth   uint32
	TxDepth   uint32
	FillDepth uint32
	CompDepth uint32
}

// RxCallback receives one de-queued frame. buf aliases the UMEM frame
// directly; the callee must finish with it (copy it out) before
// returning, since Service recycles the frame to the FILL ring right
// after the callback returns.
type RxCallback func(buf []byte)
