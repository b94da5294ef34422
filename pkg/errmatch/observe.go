package errmatch

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation statuses. "rejected" is a caller mistake, not a failure.
const (
	statusOK       = "ok"
	statusRejected = "rejected"
	statusError    = "error"
)

type sdkMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	similarity prometheus.Histogram
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "errmatch",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "SDK operations by type and status (ok, rejected, error).",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "errmatch",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		similarity: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "errmatch",
			Subsystem: "sdk",
			Name:      "match_similarity",
			Help:      "Similarity of the best catalogued match returned to callers.",
			Buckets:   []float64{0, 0.25, 0.5, 0.6, 0.7, 0.75, 0.8, 0.85, 0.9, 0.95, 1},
		}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.similarity); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one, so two
// clients can share a registerer.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("errmatch: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("errmatch: register metric: %w", err)
	}
	return nil
}

// observer provides logging and metrics for SDK operations. A nil observer is a no-op.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *sdkMetrics
	if reg != nil {
		var err error
		m, err = newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return statusOK
	case errors.Is(err, ErrEmptyInput),
		errors.Is(err, ErrNoLabels),
		errors.Is(err, ErrInvalidLabels),
		errors.Is(err, ErrInvalidCatalog),
		errors.Is(err, ErrDatabaseNotConfigured):
		return statusRejected
	default:
		return statusError
	}
}

func (o *observer) observe(op string, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	status := statusOf(err)

	if o.metrics != nil {
		o.metrics.operations.WithLabelValues(op, status).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}

	if o.logger == nil {
		return
	}
	switch status {
	case statusError:
		o.logger.Warn("operation failed", "op", op, "duration", dur, "error", err)
	case statusRejected:
		o.logger.Debug("operation rejected", "op", op, "duration", dur, "reason", err)
	default:
		o.logger.Debug("operation completed", "op", op, "duration", dur)
	}
}

func (o *observer) matched(similarity float64) {
	if o == nil || o.metrics == nil {
		return
	}
	o.metrics.similarity.Observe(similarity)
}
