package resolver

import (
	"time"

	"github.com/eapache/queue"
	"golang.org/x/time/rate"

	"github.com/momentics/xdpnet/api"
	"github.com/momentics/xdpnet/core/protocol"
	"github.com/momentics/xdpnet/pool"
)

// Result is one outcome of the spec §4.4 lookup state machine.
type Result int

const (
	ResultLoopback Result = iota
	ResultNoRoute
	ResultProbeRequired
	ResultRetry
	ResultSuccess
	ResultMulticast
	ResultBroadcast
)

func (r Result) String() string {
	switch r {
	case ResultLoopback:
		return "loopback"
	case ResultNoRoute:
		return "no_route"
	case ResultProbeRequired:
		return "probe_required"
	case ResultRetry:
		return "retry"
	case ResultSuccess:
		return "success"
	case ResultMulticast:
		return "multicast"
	case ResultBroadcast:
		return "broadcast"
	default:
		return "unknown"
	}
}

// Resolution is the full outcome of a Lookup.
type Resolution struct {
	Result  Result
	MAC     api.MAC
	Ifindex int
}

const (
	defaultSlowRefresh = 60 * time.Second
	defaultFastRefresh = 200 * time.Microsecond
)

// Resolver caches the kernel's neighbor and routing tables for one
// dispatcher shard and drives the probe/retry state machine of spec
// §4.4. It is not safe for concurrent use — each shard owns its own
// instance (spec §4.4 concurrency note).
type Resolver struct {
	src   api.NetlinkSource
	srcIP uint32

	arp    map[uint32]api.NeighEntry
	routes []api.RouteEntry

	pending    *queue.Queue
	pendingSet map[uint32]struct{}
	limiter    *rate.Limiter

	probeBufs api.BytePool

	nextRefresh time.Time
	slowRefresh time.Duration
	fastRefresh time.Duration
}

// New builds a Resolver over src, scoped to this shard's configured
// source IP. probeRate/probeBurst bound how many ARP probes DrainProbes
// emits per call, preventing a burst of misses from flooding the wire.
func New(src api.NetlinkSource, srcIP uint32, probeRate rate.Limit, probeBurst int) *Resolver {
	return &Resolver{
		src:         src,
		srcIP:       srcIP,
		arp:         make(map[uint32]api.NeighEntry),
		pending:     queue.New(),
		pendingSet:  make(map[uint32]struct{}),
		limiter:     rate.NewLimiter(probeRate, probeBurst),
		probeBufs:   pool.NewSyncBytePool(),
		slowRefresh: defaultSlowRefresh,
		fastRefresh: defaultFastRefresh,
	}
}

// Refresh re-fetches the kernel's neighbor and routing tables if the
// refresh deadline has passed. Entries are replaced wholesale; the
// resolver never merges stale and fresh state (spec §4.4: "refreshed in
// place and never deleted" describes the table's role, not partial
// updates within one refresh).
func (r *Resolver) Refresh(now time.Time) error {
	if r.nextRefresh.IsZero() {
		r.nextRefresh = now
	}
	if now.Before(r.nextRefresh) {
		return nil
	}
	neigh, err := r.src.DumpNeigh()
	if err != nil {
		return err
	}
	routes, err := r.src.DumpRoutes()
	if err != nil {
		return err
	}
	r.arp = neigh
	r.routes = routes
	for ip := range r.pendingSet {
		if e, ok := neigh[ip]; ok && !e.Pending {
			delete(r.pendingSet, ip)
		}
	}
	r.nextRefresh = now.Add(r.slowRefresh)
	return nil
}

func (r *Resolver) scheduleFastRefresh(now time.Time) {
	deadline := now.Add(r.fastRefresh)
	if r.nextRefresh.IsZero() || deadline.Before(r.nextRefresh) {
		r.nextRefresh = deadline
	}
}

// Lookup resolves dstIP to a next-hop MAC per the spec §4.4 state table.
func (r *Resolver) Lookup(dstIP uint32, now time.Time) Resolution {
	if protocol.IsLoopbackIP(dstIP) || dstIP == r.srcIP {
		return Resolution{Result: ResultLoopback}
	}
	if protocol.IsBroadcastIP(dstIP) {
		return Resolution{Result: ResultBroadcast}
	}
	if protocol.IsMulticastIP(dstIP) {
		return Resolution{Result: ResultMulticast}
	}

	route, ok := r.lookupRoute(dstIP)
	if !ok {
		return Resolution{Result: ResultNoRoute}
	}
	nextHop := route.NextHop
	if nextHop == 0 {
		nextHop = dstIP // directly connected destination
	}

	entry, ok := r.arp[nextHop]
	if ok && !entry.Pending {
		return Resolution{Result: ResultSuccess, MAC: entry.MAC, Ifindex: entry.Ifindex}
	}

	if _, alreadyProbed := r.pendingSet[nextHop]; alreadyProbed {
		// Re-entering after a prior PROBE_RQD: re-fetch the ARP table
		// once before giving up on this frame (spec §4.4).
		if neigh, err := r.src.DumpNeigh(); err == nil {
			if e, ok := neigh[nextHop]; ok {
				r.arp[nextHop] = e
				if !e.Pending {
					delete(r.pendingSet, nextHop)
					return Resolution{Result: ResultSuccess, MAC: e.MAC, Ifindex: e.Ifindex}
				}
			}
		}
		r.scheduleFastRefresh(now)
		return Resolution{Result: ResultRetry}
	}

	r.pendingSet[nextHop] = struct{}{}
	r.pending.Add(nextHop)
	r.scheduleFastRefresh(now)
	return Resolution{Result: ResultProbeRequired}
}

// DrainProbes emits pending ARP probes, rate-limited, as ready-to-send
// Ethernet+ARP frames addressed from srcMAC/srcIP. Each frame is drawn
// from r's buffer pool; the caller must pass every returned slice back
// to ReleaseProbes once it has been handed to a Sender, since AF_XDP's
// Tx copies the bytes into UMEM before returning (spec §4.2).
func (r *Resolver) DrainProbes(srcMAC api.MAC) [][]byte {
	var out [][]byte
	for r.pending.Length() > 0 {
		if !r.limiter.Allow() {
			break
		}
		ip, ok := r.pending.Peek().(uint32)
		if !ok {
			r.pending.Remove()
			continue
		}
		r.pending.Remove()
		frame := protocol.BuildARPProbe(ip, r.srcIP, srcMAC)
		buf := r.probeBufs.Acquire(len(frame))
		copy(buf, frame[:])
		out = append(out, buf)
	}
	return out
}

// ReleaseProbes returns buffers previously handed out by DrainProbes to
// r's pool for reuse by the next probe burst.
func (r *Resolver) ReleaseProbes(bufs [][]byte) {
	for _, buf := range bufs {
		r.probeBufs.Release(buf)
	}
}

func (r *Resolver) lookupRoute(ip uint32) (api.RouteEntry, bool) {
	var best api.RouteEntry
	bestLen := -1
	found := false
	for _, rt := range r.routes {
		mask := maskFromLen(rt.MaskLen)
		if ip&mask == rt.DstIP&mask && rt.MaskLen > bestLen {
			best = rt
			bestLen = rt.MaskLen
			found = true
		}
	}
	return best, found
}

func maskFromLen(n int) uint32 {
	if n <= 0 {
		return 0
	}
	if n >= 32 {
		return 0xFFFFFFFF
	}
	return ^uint32(0) << uint(32-n)
}
