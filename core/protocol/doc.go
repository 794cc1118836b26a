// Package protocol implements the wire-level Ethernet/IPv4/UDP parsing,
// the packed frag signature, and the ARP probe builder shared by the
// classifier (C5), the egress pipeline (C6), and the route/ARP resolver
// (C4).
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Nothing here allocates or blocks: every function operates on a caller
// owned byte slice or a fixed-size array, matching the dispatcher's
// no-dynamic-allocation hot path.
package protocol
