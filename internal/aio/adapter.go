package aio

import (
	"github.com/momentics/xdpnet/api"
	"github.com/momentics/xdpnet/internal/xdp"
)

// Socket is the subset of *xdp.Socket the adapter drives; declared here
// so tests can substitute a fake without touching the real AF_XDP path.
type Socket interface {
	Service(rx xdp.RxCallback) (bool, error)
	Tx(frames [][]byte) (int, error)
}

// RecvCallback receives a flushed batch of up to aio_depth frames. It
// returns nothing: the adapter treats every flushed batch as fully
// consumed and resets it, since there is no upstream backpressure in this
// system (spec §4.3).
type RecvCallback func(batch api.Batch[[]byte], n int)

// Adapter batches up to depth packets per flush on both the send and
// receive paths over one underlying Socket (spec §4.3).
type Adapter struct {
	sock  Socket
	depth int
	rx    *SliceBatch[[]byte]
}

// NewAdapter wraps sock with batching glue of the given aio_depth.
func NewAdapter(sock Socket, depth int) *Adapter {
	if depth <= 0 {
		depth = 1
	}
	return &Adapter{sock: sock, depth: depth, rx: NewSliceBatch[[]byte](depth)}
}

// Recv drains the socket, accumulating frames into a batch and flushing
// to cb every aio_depth frames, plus once more for any remainder once
// the socket reports no further progress. Each frame is copied out of
// the UMEM frame before the underlying socket recycles it.
func (a *Adapter) Recv(cb RecvCallback) (bool, error) {
	flush := func() {
		if a.rx.Len() == 0 {
			return
		}
		cb(a.rx, a.rx.Len())
		a.rx.Reset()
	}

	busy, err := a.sock.Service(func(buf []byte) {
		cp := make([]byte, len(buf))
		copy(cp, buf)
		a.rx.Push(cp)
		if a.rx.Len() >= a.depth {
			flush()
		}
	})
	flush()
	return busy, err
}

// Send transmits up to n frames from batch, splitting into aio_depth
// sized bursts against the socket's TX ring. Returns the number actually
// enqueued; the caller (egress pipeline) is responsible for counting the
// remainder as dropped.
func (a *Adapter) Send(batch api.Batch[[]byte], n int) (int, error) {
	items := batch.Underlying()
	if n < len(items) {
		items = items[:n]
	}
	sent := 0
	for len(items) > 0 {
		step := len(items)
		if step > a.depth {
			step = a.depth
		}
		s, err := a.sock.Tx(items[:step])
		sent += s
		if err != nil {
			return sent, err
		}
		if s < step {
			break
		}
		items = items[step:]
	}
	return sent, nil
}
