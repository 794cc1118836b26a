// Package dispatcher implements the C7 cooperative poll loop (spec
// §4.7): one Shard drains its bound XDP sockets through C3, classifies
// received frames through C5, claims inbound frags owned by this shard
// and carries them through C6, and periodically refreshes C4 and rotates
// counters into a sink. Shard has no internal concurrency; Run is the
// entire execution model for one shard.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package dispatcher
