package xdp

// Stats mirrors the raw driver counters spec §4.2 requires: invalid
// descriptor counts must remain zero in correct operation (a non-zero
// value is fatal per spec §7); ring-full and fill-empty are observable
// but non-fatal (spec §9 explicitly warns implementers not to assert
// zero on the latter two).
type Stats struct {
	RxDropped       uint64
	RxInvalidDescs  uint64
	TxInvalidDescs  uint64
	RxRingFull      uint64
	RxFillRingEmpty uint64
	TxRingEmpty     uint64
}

// Add accumulates delta into s, used by the dispatcher's housekeeping
// phase when folding per-socket stats into the shard's aggregate.
func (s *Stats) Add(delta Stats) {
	s.RxDropped += delta.RxDropped
	s.RxInvalidDescs += delta.RxInvalidDescs
	s.TxInvalidDescs += delta.TxInvalidDescs
	s.RxRingFull += delta.RxRingFull
	s.RxFillRingEmpty += delta.RxFillRingEmpty
	s.TxRingEmpty += delta.TxRingEmpty
}
