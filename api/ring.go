// Package api
// Author: momentics
//
// Ring contract for the SPSC meta+data rings that carry frags between
// the dispatcher and its peer stages. Exactly one producer and one
// consumer per ring; Seq is the producer's monotonic publish counter.

package api

// Ring is a fixed-capacity single-producer/single-consumer meta-ring,
// published with store-release ordering so a consumer that observes an
// advanced Seq is guaranteed to observe the entry it names. There is no
// backpressure: a producer that laps a slow consumer overwrites it, and
// the consumer is responsible for detecting the lap by comparing its
// local sequence against the observed published sequence (spec §4.1).
type Ring[T any] interface {
	// Publish writes entry at the producer's current slot and advances
	// Seq with release semantics. Always succeeds; overwrites the oldest
	// unconsumed entry if the consumer has fallen more than Depth behind.
	Publish(entry T) bool

	// TryConsume reads the next unconsumed entry if the producer has
	// published it; ok is false if nothing new is available. Resyncs
	// past any lapped entries rather than returning them.
	TryConsume() (entry T, ok bool)

	// Seq returns the producer's current published sequence number.
	Seq() uint64

	// Depth returns the fixed ring depth (power of two).
	Depth() uint64
}
