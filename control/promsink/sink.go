// File: control/promsink/sink.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus exposition for the dispatcher's CounterSet metrics.

package promsink

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/momentics/xdpnet/control"
)

// metricNames is the fixed CounterSet naming dispatcher.Shard.metricsWrite
// writes into a control.MetricsRegistry (spec §6).
var metricNames = []string{
	"RECEIVED_PACKETS",
	"RECEIVED_BYTES",
	"SENT_PACKETS",
	"SENT_BYTES",
	"TX_DROPPED",
	"XDP_RX_DROPPED_OTHER",
	"XDP_RX_DROPPED_RING_FULL",
}

// Sink holds one Prometheus gauge per known dispatcher counter, plus the
// registry and HTTP server used to expose them.
type Sink struct {
	registry *prometheus.Registry
	gauges   map[string]prometheus.Gauge

	server *http.Server
}

// New creates a Sink with every known counter pre-registered under the
// xdpnet_ namespace, lower-cased from its MetricsRegistry key.
func New() *Sink {
	s := &Sink{
		registry: prometheus.NewRegistry(),
		gauges:   make(map[string]prometheus.Gauge, len(metricNames)),
	}
	for _, name := range metricNames {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "xdpnet",
			Name:      promName(name),
			Help:      fmt.Sprintf("dispatcher counter %s", name),
		})
		s.registry.MustRegister(g)
		s.gauges[name] = g
	}
	return s
}

// Collect folds one control.MetricsRegistry snapshot into the Prometheus
// gauges. Unknown keys and non-numeric values are ignored. The gauges
// carry no per-shard label: each Collect overwrites the values set by the
// previous one, so calling it for several shards' registries leaves only
// the last shard's values.
func (s *Sink) Collect(reg *control.MetricsRegistry) {
	snap := reg.GetSnapshot()
	for name, g := range s.gauges {
		v, ok := snap[name]
		if !ok {
			continue
		}
		if f, ok := asFloat(v); ok {
			g.Set(f)
		}
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case uint64:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func promName(metricsRegistryKey string) string {
	out := make([]byte, 0, len(metricsRegistryKey))
	for _, r := range metricsRegistryKey {
		if r >= 'A' && r <= 'Z' {
			out = append(out, byte(r-'A'+'a'))
		} else {
			out = append(out, byte(r))
		}
	}
	return string(out)
}

// Serve starts an HTTP server exposing /metrics on addr. It blocks until
// the server stops; call it from its own goroutine.
func (s *Sink) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown stops the HTTP server started by Serve, if any.
func (s *Sink) Shutdown() error {
	if s.server == nil {
		return nil
	}
	return s.server.Close()
}
