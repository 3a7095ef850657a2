// Package metrics exposes registrar metrics in the Prometheus format.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registrar collectors.
type Metrics struct {
	// Calls by wire method and result kind ("ok" on success)
	OperationsTotal *prometheus.CounterVec

	// Call latency by wire method
	OperationDuration *prometheus.HistogramVec

	Domains            prometheus.Gauge
	PendingCommitments prometheus.Gauge
	LastEventSeq       prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics registers every collector on a fresh registry prefixed with
// namespace.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total registrar calls by method and result",
		}, []string{"method", "result"}),

		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of registrar calls by method",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"method"}),

		Domains: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "domains",
			Help:      "Domains held in state, including expired ones awaiting reuse",
		}),
		PendingCommitments: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_commitments",
			Help:      "Commitments not yet consumed or pruned",
		}),
		LastEventSeq: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_event_seq",
			Help:      "Sequence number of the latest emitted event",
		}),
		registry: reg,
	}
}

// ObserveCall records one executed call. An empty kind counts as "ok".
func (m *Metrics) ObserveCall(method, kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "ok"
	}
	m.OperationsTotal.WithLabelValues(method, kind).Inc()
	m.OperationDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// SetState updates the state size gauges.
func (m *Metrics) SetState(domains, commitments int, lastSeq uint64) {
	if m == nil {
		return
	}
	m.Domains.Set(float64(domains))
	m.PendingCommitments.Set(float64(commitments))
	m.LastEventSeq.Set(float64(lastSeq))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// MetricsServer serves /metrics on its own listener.
type MetricsServer struct {
	Metrics *Metrics
	srv     *http.Server
}

// New creates the metrics for namespace and a server bound to addr.
func New(namespace, addr string) (*MetricsServer, error) {
	m := NewMetrics(namespace)

	mux := chi.NewRouter()
	mux.Method(http.MethodGet, "/metrics", m.Handler())

	return &MetricsServer{
		Metrics: m,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

func (s *MetricsServer) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
