// internal/common/metrics/metrics.go
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HandlerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "handler_requests_total",
			Help: "Total number of handler invocations by response status",
		},
		[]string{"handler", "status"},
	)

	HandlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "handler_duration_seconds",
			Help: "Duration of handler invocations in seconds",
		},
		[]string{"handler"},
	)

	StoreWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_write_failures_total",
			Help: "Mirror writes that failed and were suppressed",
		},
		[]string{"store", "operation"},
	)

	ReconcilerRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciler_records_total",
			Help: "Records visited by the sync job by kind and result",
		},
		[]string{"kind", "result"},
	)
)

// ObserveRequest records one handler invocation.
func ObserveRequest(handler string, status int, started time.Time) {
	HandlerRequests.WithLabelValues(handler, strconv.Itoa(status)).Inc()
	HandlerDuration.WithLabelValues(handler).Observe(time.Since(started).Seconds())
}
