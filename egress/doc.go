// Package egress implements the C6 egress pipeline: accept an inbound
// frag, decide loopback vs. wire, patch the L2 header, and submit to
// the matching AF_XDP socket (spec §4.6). The dispatcher drives one
// Pipeline call per owned frag; before/during/after_frag map directly
// to BeforeFrag/DuringFrag/AfterFrag below.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package egress
