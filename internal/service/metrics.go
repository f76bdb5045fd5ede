package service

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records seat operations.  A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	seats      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics registers the seat collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cine",
			Subsystem: "seats",
			Name:      "operations_total",
			Help:      "Seat reservation and cancellation attempts by outcome.",
		}, []string{"op", "outcome"}),
		seats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cine",
			Subsystem: "seats",
			Name:      "changed_total",
			Help:      "Seats reserved or released.",
		}, []string{"op"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cine",
			Subsystem: "seats",
			Name:      "operation_duration_seconds",
			Help:      "Latency of seat operations including store round trips.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(m.operations, m.seats, m.duration)
	return m
}

func (m *Metrics) observe(op string, start time.Time, err error, changed int) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	m.operations.WithLabelValues(op, outcome(err)).Inc()
	if err == nil && changed > 0 {
		m.seats.WithLabelValues(op).Add(float64(changed))
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrEmptySelection):
		return "empty_selection"
	case IsNotFound(err):
		return "not_found"
	case errors.Is(err, ErrSeatUnknown):
		return "seat_unknown"
	case errors.Is(err, ErrSeatAlreadyReserved):
		return "already_reserved"
	case errors.Is(err, ErrSeatNotReserved):
		return "not_reserved"
	case errors.Is(err, ErrCancellationConflict):
		return "conflict"
	}
	return "error"
}
