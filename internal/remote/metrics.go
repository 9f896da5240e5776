package remote

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	pushes      *prometheus.CounterVec
	pulls       *prometheus.CounterVec
	applied     prometheus.Counter
	lastSuccess prometheus.Gauge
}

// newMetrics registers the sync collectors with reg. A nil reg gets a
// private registry so several adapters can coexist in tests.
func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &metrics{
		pushes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clubhouse_sync_push_total",
			Help: "Snapshot pushes to the remote store by result.",
		}, []string{"result"}),
		pulls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clubhouse_sync_pull_total",
			Help: "Snapshot pulls from the remote store by result.",
		}, []string{"result"}),
		applied: factory.NewCounter(prometheus.CounterOpts{
			Name: "clubhouse_sync_applied_total",
			Help: "Remote snapshots applied locally.",
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "clubhouse_sync_last_success_timestamp_seconds",
			Help: "Unix time of the last successful push or pull.",
		}),
	}
}

// Result label values.
const (
	resultOK        = "ok"
	resultError     = "error"
	resultSkipped   = "skipped"
	resultDiscarded = "discarded"
	resultEmpty     = "empty"
)
