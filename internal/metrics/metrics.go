// Package metrics exposes share, auto-return and bridge counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/illmade-knight/share-receiver/pkg/activity"
	"github.com/illmade-knight/share-receiver/pkg/bridge"
	"github.com/illmade-knight/share-receiver/pkg/sharing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "sharereceiver"

// Metrics owns a private registry so tests and multiple apps do not collide.
type Metrics struct {
	registry *prometheus.Registry

	sharesAccepted *prometheus.CounterVec
	storeDrains    *prometheus.CounterVec
	autoReturns    *prometheus.CounterVec
	contentSaved   *prometheus.CounterVec
	bridgeCalls    *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New registers every collector under namespace.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.sharesAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "share",
			Name:      "accepted_total",
			Help:      "Shares accepted by an entry point",
		},
		[]string{"source", "kind"},
	)
	m.storeDrains = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "drains_total",
			Help:      "Shared store drain attempts by whether pending content was found",
		},
		[]string{"found"},
	)
	m.autoReturns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auto_return",
			Name:      "events_total",
			Help:      "Auto-return timer transitions",
		},
		[]string{"event"},
	)
	m.contentSaved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "share",
			Name:      "saved_total",
			Help:      "Save acknowledgements reported by the application layer",
		},
		[]string{"outcome"},
	)
	m.bridgeCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "calls_total",
			Help:      "Bridge method invocations",
		},
		[]string{"channel", "method", "outcome"},
	)
	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	for _, c := range []prometheus.Collector{
		m.sharesAccepted,
		m.storeDrains,
		m.autoReturns,
		m.contentSaved,
		m.bridgeCalls,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	} {
		m.registry.MustRegister(c)
	}
	return m
}

// Registry is exposed for tests and for additional collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ShareAccepted(source sharing.Source, kind sharing.Kind) {
	m.sharesAccepted.WithLabelValues(string(source), kind.String()).Inc()
}

func (m *Metrics) StoreDrained(found bool) {
	m.storeDrains.WithLabelValues(strconv.FormatBool(found)).Inc()
}

func (m *Metrics) ReturnArmed()     { m.autoReturns.WithLabelValues("armed").Inc() }
func (m *Metrics) ReturnFired()     { m.autoReturns.WithLabelValues("fired").Inc() }
func (m *Metrics) ReturnCancelled() { m.autoReturns.WithLabelValues("cancelled").Inc() }

func (m *Metrics) ContentSaved(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.contentSaved.WithLabelValues(outcome).Inc()
}

// BridgeCall implements bridge.Recorder.
func (m *Metrics) BridgeCall(channel, method, outcome string) {
	m.bridgeCalls.WithLabelValues(channel, method, outcome).Inc()
}

// RecordHTTPRequest is called by the host server middleware.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

var (
	_ activity.Observer = (*Metrics)(nil)
	_ bridge.Recorder   = (*Metrics)(nil)
)
