// Package promsink adapts a control.MetricsRegistry snapshot onto
// Prometheus gauges and exposes them over HTTP, mirroring the dispatcher's
// CounterSet naming (spec §6 operational counters).
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package promsink
