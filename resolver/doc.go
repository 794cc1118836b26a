// Package resolver implements the C4 route/ARP resolver: cached
// next-hop and L2 resolution with probe/retry states (spec §4.4). A
// Resolver instance is owned by exactly one dispatcher shard; the
// kernel-table scraper is injected as an api.NetlinkSource so this
// package never opens a netlink socket itself.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package resolver
