package metrics

import (
	"errors"
	"testing"
	"time"

	"asset-ledger/internal/apperrors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveCountsByResult(t *testing.T) {
	m := NewLedger(prometheus.NewRegistry())

	m.Observe("create_expenditure", time.Now(), nil)
	m.Observe("create_expenditure", time.Now(), &apperrors.InsufficientStockError{Available: 1, Requested: 2})
	m.Observe("create_expenditure", time.Now(), &apperrors.InsufficientStockError{Available: 1, Requested: 3})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("create_expenditure", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("create_expenditure", "insufficient_stock")))
}

func TestAuditCounters(t *testing.T) {
	m := NewLedger(prometheus.NewRegistry())

	m.AuditWritten(nil)
	m.AuditWritten(errors.New("s3 down"))
	m.AuditDropped()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.auditWritten.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.auditDropped))
}

func TestNilLedgerIsNoop(t *testing.T) {
	var m *Ledger
	assert.NotPanics(t, func() {
		m.Observe("x", time.Now(), nil)
		m.Retry("x")
		m.AuditWritten(nil)
		m.AuditDropped()
	})
}

func TestResultLabels(t *testing.T) {
	assert.Equal(t, "not_found", Result(&apperrors.NotFoundError{Resource: "Asset"}))
	assert.Equal(t, "conflict", Result(&apperrors.ConflictError{}))
	assert.Equal(t, "error", Result(errors.New("boom")))
}
