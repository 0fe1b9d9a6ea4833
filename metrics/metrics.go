// Package metrics tracks router and protocol-stack counters and
// exposes them both as plain Go values (for log lines and status
// commands) and as a Prometheus scrape endpoint.
package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter is a thread-safe monotonic counter.
type Counter struct {
	value int64
	pc    prometheus.Counter
}

// Add adds delta to the counter.
func (c *Counter) Add(delta int64) {
	atomic.AddInt64(&c.value, delta)
	if c.pc != nil {
		c.pc.Add(float64(delta))
	}
}

// Inc increments the counter by 1.
func (c *Counter) Inc() { c.Add(1) }

// Value returns the current counter value.
func (c *Counter) Value() int64 { return atomic.LoadInt64(&c.value) }

// Gauge is a thread-safe up-or-down counter.
type Gauge struct {
	value int64
	pg    prometheus.Gauge
}

// Set sets the gauge's value.
func (g *Gauge) Set(value int64) {
	atomic.StoreInt64(&g.value, value)
	if g.pg != nil {
		g.pg.Set(float64(value))
	}
}

// Add adds delta to the gauge.
func (g *Gauge) Add(delta int64) {
	atomic.AddInt64(&g.value, delta)
	if g.pg != nil {
		g.pg.Add(float64(delta))
	}
}

// Inc increments the gauge by 1.
func (g *Gauge) Inc() { g.Add(1) }

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() { g.Add(-1) }

// Value returns the current gauge value.
func (g *Gauge) Value() int64 { return atomic.LoadInt64(&g.value) }

// Latency tracks request/reply round-trip durations, both as a
// summary suitable for log lines and as a Prometheus histogram.
type Latency struct {
	count int64
	sum   int64 // nanoseconds
	ph    prometheus.Histogram
}

// Record records one latency measurement.
func (l *Latency) Record(d time.Duration) {
	atomic.AddInt64(&l.count, 1)
	atomic.AddInt64(&l.sum, d.Nanoseconds())
	if l.ph != nil {
		l.ph.Observe(d.Seconds())
	}
}

// Avg returns the mean recorded latency.
func (l *Latency) Avg() time.Duration {
	count := atomic.LoadInt64(&l.count)
	if count == 0 {
		return 0
	}
	return time.Duration(atomic.LoadInt64(&l.sum) / count)
}

// Registry holds every counter, gauge, and histogram the router and
// protocol stack maintain, each wired to a Prometheus collector
// registered under the "bacnet" namespace.
type Registry struct {
	reg *prometheus.Registry

	// NPDUs routed, by outcome.
	FramesForwarded Counter
	FramesDropped   Counter
	FramesLocal     Counter

	// Network-layer discovery traffic.
	WhoIsRouterSent       Counter
	IAmRouterReceived      Counter
	RouteQueriesPending    Gauge
	KnownNetworks          Gauge

	// MS/TP token-ring health.
	TokensPassed      Counter
	TokensReclaimed   Counter
	FramesRetransmitted Counter

	// BACnet/IP BBMD state.
	ForeignDevicesRegistered Gauge
	BDTEntries               Gauge

	// Application-layer request/reply round trips.
	RequestLatency Latency

	startTime time.Time
}

// NewRegistry constructs a Registry and registers every metric against
// a fresh Prometheus registry.
func NewRegistry() *Registry {
	r := &Registry{reg: prometheus.NewRegistry(), startTime: time.Now()}

	counter := func(name, help string) prometheus.Counter {
		c := promauto.With(r.reg).NewCounter(prometheus.CounterOpts{
			Namespace: "bacnet", Name: name, Help: help,
		})
		return c
	}
	gauge := func(name, help string) prometheus.Gauge {
		g := promauto.With(r.reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "bacnet", Name: name, Help: help,
		})
		return g
	}

	r.FramesForwarded.pc = counter("frames_forwarded_total", "NPDUs forwarded to another port")
	r.FramesDropped.pc = counter("frames_dropped_total", "NPDUs dropped (hop count exceeded, unparseable, disabled route)")
	r.FramesLocal.pc = counter("frames_local_total", "NPDUs delivered to this router's own network")

	r.WhoIsRouterSent.pc = counter("who_is_router_sent_total", "Who-Is-Router-To-Network queries issued")
	r.IAmRouterReceived.pc = counter("i_am_router_received_total", "I-Am-Router-To-Network replies learned")
	r.RouteQueriesPending.pg = gauge("route_queries_pending", "Destination networks awaiting an I-Am-Router-To-Network reply")
	r.KnownNetworks.pg = gauge("known_networks", "Destination networks with a learned or configured route")

	r.TokensPassed.pc = counter("mstp_tokens_passed_total", "MS/TP tokens passed to the next station")
	r.TokensReclaimed.pc = counter("mstp_tokens_reclaimed_total", "MS/TP tokens reclaimed after Tno_token silence")
	r.FramesRetransmitted.pc = counter("mstp_frames_retransmitted_total", "MS/TP data frames retried after a reply timeout")

	r.ForeignDevicesRegistered.pg = gauge("bbmd_foreign_devices", "Foreign devices currently registered with this BBMD")
	r.BDTEntries.pg = gauge("bbmd_bdt_entries", "Broadcast Distribution Table entries configured on this BBMD")

	r.RequestLatency.ph = promauto.With(r.reg).NewHistogram(prometheus.HistogramOpts{
		Namespace: "bacnet", Name: "request_latency_seconds", Help: "Confirmed-service request/reply round-trip latency",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	})

	return r
}

// Uptime returns the time since this registry was created.
func (r *Registry) Uptime() time.Duration { return time.Since(r.startTime) }

// Handler returns the http.Handler to mount at the metrics scrape
// path (conventionally "/metrics").
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
