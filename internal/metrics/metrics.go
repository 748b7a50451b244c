// Package metrics defines the Prometheus collectors the server exports.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "photohunt"

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultPartial = "partial"
)

// Metrics groups the application's collectors. A nil *Metrics is valid and
// records nothing, which keeps tests that do not care about metrics short.
type Metrics struct {
	Connects       *prometheus.CounterVec
	Disconnects    prometheus.Counter
	RevokeFailures prometheus.Counter
	SyncRuns       *prometheus.CounterVec
	SyncPages      prometheus.Counter
	SyncEdges      prometheus.Counter
	SyncDropped    prometheus.Counter
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connects_total",
			Help:      "Connect attempts by result.",
		}, []string{"result"}),
		Disconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disconnects_total",
			Help:      "Users disconnected.",
		}),
		RevokeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_revoke_failures_total",
			Help:      "Token revocations that failed during disconnect.",
		}),
		SyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_sync_runs_total",
			Help:      "Friend graph synchronizations by result.",
		}, []string{"result"}),
		SyncPages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_sync_pages_total",
			Help:      "Connection pages read from the identity provider.",
		}),
		SyncEdges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_sync_edges_total",
			Help:      "Friend edges upserted by graph synchronization.",
		}),
		SyncDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_sync_dropped_total",
			Help:      "Synchronizations not scheduled because the worker queue was full.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Connects,
			m.Disconnects,
			m.RevokeFailures,
			m.SyncRuns,
			m.SyncPages,
			m.SyncEdges,
			m.SyncDropped,
			m.HTTPRequests,
			m.HTTPDuration,
		)
	}
	return m
}

func (m *Metrics) ConnectResult(result string) {
	if m == nil {
		return
	}
	m.Connects.WithLabelValues(result).Inc()
}

func (m *Metrics) Disconnected() {
	if m == nil {
		return
	}
	m.Disconnects.Inc()
}

func (m *Metrics) RevokeFailed() {
	if m == nil {
		return
	}
	m.RevokeFailures.Inc()
}

func (m *Metrics) SyncFinished(result string, pages, edges int) {
	if m == nil {
		return
	}
	m.SyncRuns.WithLabelValues(result).Inc()
	m.SyncPages.Add(float64(pages))
	m.SyncEdges.Add(float64(edges))
}

func (m *Metrics) SyncDroppedTask() {
	if m == nil {
		return
	}
	m.SyncDropped.Inc()
}

// ObserveRequest records one served request. route is the matched route
// pattern, never the raw path, so label cardinality stays bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
