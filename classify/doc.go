// Package classify implements the C5 classifier and RX pipeline: parse
// Ethernet/IPv4/UDP, match destination port to outbound link, and
// publish a frag (spec §4.5). Nothing here blocks or allocates beyond
// the one-time PortMap construction.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package classify
