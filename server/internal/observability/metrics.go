package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics exposes Prometheus collectors for calendar operations.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	results    *prometheus.HistogramVec
	fetched    *prometheus.HistogramVec
}

// NewMetrics builds the collectors and registers them with reg. Collectors already
// registered under the same name are reused, so several services can share a registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "calsense",
			Subsystem: "calendar",
			Name:      "operations_total",
			Help:      "Calendar operations by outcome.",
		}, []string{"operation", "status", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "calsense",
			Subsystem: "calendar",
			Name:      "operation_duration_seconds",
			Help:      "Wall time of calendar operations including repository fetches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		results: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "calsense",
			Subsystem: "calendar",
			Name:      "results",
			Help:      "Number of slots, conflicts or alternatives returned per operation.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 25, 50, 100},
		}, []string{"operation"}),
		fetched: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "calsense",
			Subsystem: "repository",
			Name:      "snapshot_events",
			Help:      "Events per fetched snapshot.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
		}, []string{"operation"}),
	}

	var err error
	m.operations, err = register(reg, m.operations)
	if err != nil {
		return nil, err
	}
	m.duration, err = register(reg, m.duration)
	if err != nil {
		return nil, err
	}
	m.results, err = register(reg, m.results)
	if err != nil {
		return nil, err
	}
	m.fetched, err = register(reg, m.fetched)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveOperation records one finished operation. code is empty on success.
func (m *Metrics) ObserveOperation(operation, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := StatusOK
	if code != "" {
		status = StatusError
	}
	m.operations.WithLabelValues(operation, status, code).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveResults records how many items an operation returned.
func (m *Metrics) ObserveResults(operation string, n int) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(operation).Observe(float64(n))
}

// ObserveSnapshot records the size of a fetched event snapshot.
func (m *Metrics) ObserveSnapshot(operation string, n int) {
	if m == nil {
		return
	}
	m.fetched.WithLabelValues(operation).Observe(float64(n))
}
