// Package bootstrap implements api.Bootstrap: the privileged collaborator
// that loads and attaches the XDP program, creates the XSKMAP, and binds
// individual AF_XDP sockets into it (spec §6). Every call here touches the
// kernel directly; internal/xdp and dispatcher never do so themselves.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package bootstrap
