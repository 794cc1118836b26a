// Package xdp implements the C2 XDP socket I/O driver: binding the
// RX/TX/FILL/COMPLETION rings of an AF_XDP socket to a pollable service
// routine. Privileged setup (program install, map insertion, the
// sockaddr_xdp bind itself) is delegated to an api.Bootstrap collaborator;
// this package owns only the user-space ring protocol and UMEM bookkeeping.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package xdp
