package telemetry

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsEnabled atomic.Bool

	// OperationDuration is the client side latency of every database operation
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_client_operation_duration_seconds",
			Help:    "Duration of database client operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"db_system_name", "db_namespace", "db_collection_name", "db_operation_name", "error_type"},
	)
)

func init() {
	metricsEnabled.Store(true)
}

// SetMetricsEnabled turns recording of operation metrics on or off
func SetMetricsEnabled(enabled bool) {
	metricsEnabled.Store(enabled)
}

// MetricsEnabled reports whether operation metrics are recorded
func MetricsEnabled() bool {
	return metricsEnabled.Load()
}

// Timer measures one operation
type Timer struct {
	start  time.Time
	labels Labels
}

// StartTimer starts measuring an operation
func StartTimer(l Labels) *Timer {
	return &Timer{start: time.Now(), labels: l}
}

// Observe records the elapsed time with the error type of err
func (t *Timer) Observe(err error) {
	if !MetricsEnabled() {
		return
	}
	OperationDuration.WithLabelValues(
		dbSystem,
		t.labels.Namespace,
		t.labels.Set,
		strings.ToUpper(t.labels.Operation),
		ErrorType(err),
	).Observe(time.Since(t.start).Seconds())
}

// ErrorType maps an error to the error_type label. Successful operations report "".
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return protocol.ResultClientTimeout.String()
	case errors.Is(err, context.Canceled):
		return "CANCELLED"
	}
	var pErr *protocol.Error
	if errors.As(err, &pErr) {
		return pErr.Code.String()
	}
	return protocol.ResultClientError.String()
}
