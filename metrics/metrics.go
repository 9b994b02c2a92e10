// Package metrics exposes Prometheus collectors for the registry and the
// HTTP server that publishes them.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ork_registry_actions_total",
		Help: "Registry actions by name and result (committed, rejected, failed)",
	}, []string{"action", "result"})

	actionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ork_registry_action_duration_seconds",
		Help:    "Time spent executing and committing a registry action",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"action"})

	authFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ork_registry_auth_failures_total",
		Help: "Rejected signed requests by reason",
	}, []string{"reason"})

	snapshotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ork_registry_snapshots_total",
		Help: "Ledger snapshot archive attempts by result",
	}, []string{"result"})
)

// Action results.
const (
	ResultCommitted = "committed"
	ResultRejected  = "rejected"
	ResultFailed    = "failed"
)

// ObserveAction records the outcome and latency of one action.
func ObserveAction(action, result string, d time.Duration) {
	actionsTotal.WithLabelValues(action, result).Inc()
	actionDuration.WithLabelValues(action).Observe(d.Seconds())
}

func IncAuthFailure(reason string) {
	authFailuresTotal.WithLabelValues(reason).Inc()
}

func IncSnapshot(result string) {
	snapshotsTotal.WithLabelValues(result).Inc()
}

// MetricsServer serves the default Prometheus registry on its own listener.
type MetricsServer struct {
	srv *http.Server
}

func New(listenAddr string) (*MetricsServer, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &MetricsServer{
		srv: &http.Server{
			Addr:              listenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
