// Package metrics expone contadores Prometheus de las operaciones del libro.
package metrics

import (
	"errors"
	"time"

	"asset-ledger/internal/apperrors"

	"github.com/prometheus/client_golang/prometheus"
)

// Ledger agrupa los colectores. Un *Ledger nil es válido y no registra nada.
type Ledger struct {
	operations   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	retries      *prometheus.CounterVec
	auditWritten *prometheus.CounterVec
	auditDropped prometheus.Counter
}

// NewLedger crea y registra los colectores en reg
func NewLedger(reg prometheus.Registerer) *Ledger {
	m := &Ledger{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "asset_ledger",
			Name:      "operations_total",
			Help:      "Ledger operations by operation and result.",
		}, []string{"operation", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "asset_ledger",
			Name:      "operation_duration_seconds",
			Help:      "Latency of ledger operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "asset_ledger",
			Name:      "optimistic_retries_total",
			Help:      "Retries caused by concurrent modification of an asset.",
		}, []string{"operation"}),
		auditWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "asset_ledger",
			Name:      "audit_entries_total",
			Help:      "Audit entries handed to the sink by result.",
		}, []string{"result"}),
		auditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "asset_ledger",
			Name:      "audit_entries_dropped_total",
			Help:      "Audit entries dropped because the buffer was full.",
		}),
	}
	reg.MustRegister(m.operations, m.duration, m.retries, m.auditWritten, m.auditDropped)
	return m
}

// Observe registra resultado y latencia de una operación
func (m *Ledger) Observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, Result(err)).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Ledger) Retry(operation string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(operation).Inc()
}

func (m *Ledger) AuditWritten(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.auditWritten.WithLabelValues(result).Inc()
}

func (m *Ledger) AuditDropped() {
	if m == nil {
		return
	}
	m.auditDropped.Inc()
}

// Result clasifica un error en una etiqueta de baja cardinalidad
func Result(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrValidation):
		return "validation_error"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, apperrors.ErrDuplicateKey):
		return "duplicate_key"
	case errors.Is(err, apperrors.ErrConcurrentModification):
		return "conflict"
	case errors.Is(err, apperrors.ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}
