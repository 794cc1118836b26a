package ring

import (
	"testing"

	"github.com/momentics/xdpnet/core/protocol"
)

func TestMetaRingPublishConsumeOrder(t *testing.T) {
	r := NewMetaRing(8)
	for i := uint64(0); i < 5; i++ {
		r.Publish(Frag{Sig: protocol.Sig(i), Chunk: Chunk(i), Size: 10})
	}
	for i := uint64(0); i < 5; i++ {
		e, seq, ok := r.TryConsume()
		if !ok {
			t.Fatalf("expected entry %d", i)
		}
		if seq != i {
			t.Fatalf("seq = %d, want %d", seq, i)
		}
		if uint64(e.Sig) != i {
			t.Fatalf("sig = %d, want %d", e.Sig, i)
		}
	}
	if _, _, ok := r.TryConsume(); ok {
		t.Fatal("expected no more entries")
	}
}

func TestMetaRingDepthRoundsToPowerOfTwo(t *testing.T) {
	r := NewMetaRing(5)
	if r.Depth() != 8 {
		t.Fatalf("Depth() = %d, want 8", r.Depth())
	}
}

func TestMetaRingTryConsumeFromIndependentCursors(t *testing.T) {
	r := NewMetaRing(8)
	for i := uint64(0); i < 3; i++ {
		r.Publish(Frag{Sig: protocol.Sig(i)})
	}

	var a, b Cursor
	// a consumes everything first; b must still see the same entries from
	// its own independent position, not be affected by a's advance.
	for i := uint64(0); i < 3; i++ {
		e, seq, ok := r.TryConsumeFrom(&a)
		if !ok || seq != i || uint64(e.Sig) != i {
			t.Fatalf("cursor a: entry %d mismatch (seq=%d sig=%d ok=%v)", i, seq, e.Sig, ok)
		}
	}
	for i := uint64(0); i < 3; i++ {
		e, seq, ok := r.TryConsumeFrom(&b)
		if !ok || seq != i || uint64(e.Sig) != i {
			t.Fatalf("cursor b: entry %d mismatch (seq=%d sig=%d ok=%v)", i, seq, e.Sig, ok)
		}
	}
	if _, _, ok := r.TryConsumeFrom(&a); ok {
		t.Fatal("cursor a: expected no more entries")
	}
}

func TestMetaRingOverwriteAfterLap(t *testing.T) {
	r := NewMetaRing(4)
	// Publish more than depth without consuming: producer never blocks.
	for i := uint64(0); i < 10; i++ {
		r.Publish(Frag{Sig: protocol.Sig(i)})
	}
	e, seq, ok := r.TryConsume()
	if !ok {
		t.Fatal("expected an entry after lap")
	}
	// Consumer must resync to the oldest still-present entry, not replay
	// a stale slot.
	if seq < 10-r.Depth() {
		t.Fatalf("seq = %d, consumer did not resync past lapped entries", seq)
	}
	if uint64(e.Sig) != seq {
		t.Fatalf("sig = %d does not match resynced seq %d", e.Sig, seq)
	}
}
