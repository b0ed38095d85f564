package services

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"asset-ledger/internal/audit"
	"asset-ledger/internal/metrics"
	"asset-ledger/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditService recibe entradas de auditoría sin bloquear ni fallar la operación que las emite
type AuditService interface {
	Record(ctx context.Context, entry *models.AuditLog)
	// Close deja de aceptar entradas y espera a que se vacíe el buffer
	Close(ctx context.Context) error
	Dropped() int64
}

type auditService struct {
	sink    audit.Sink
	entries chan *models.AuditLog
	metrics *metrics.Ledger
	logger  *zap.Logger

	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	dropped int64
}

const auditWriteTimeout = 10 * time.Second

// NewAuditService inicia el worker que escribe en el sink
func NewAuditService(sink audit.Sink, bufferSize int, m *metrics.Ledger, logger *zap.Logger) AuditService {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	s := &auditService{
		sink:    sink,
		entries: make(chan *models.AuditLog, bufferSize),
		metrics: m,
		logger:  logger.With(zap.String("component", "audit"), zap.String("sink", sink.Name())),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *auditService) Record(ctx context.Context, entry *models.AuditLog) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.drop(entry, "audit service closed")
		return
	}

	select {
	case s.entries <- entry:
	default:
		s.drop(entry, "audit buffer full")
	}
}

func (s *auditService) drop(entry *models.AuditLog, reason string) {
	atomic.AddInt64(&s.dropped, 1)
	s.metrics.AuditDropped()
	s.logger.Error("⚠️ Entrada de auditoría descartada",
		zap.String("reason", reason),
		zap.String("action", string(entry.Action)),
		zap.String("resource_type", string(entry.ResourceType)),
		zap.String("resource_id", entry.ResourceID))
}

func (s *auditService) run() {
	defer close(s.done)

	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		err := s.sink.Write(ctx, entry)
		cancel()

		s.metrics.AuditWritten(err)
		if err != nil {
			// La falla se registra y se descarta: nunca llega al llamador
			s.logger.Error("❌ Error escribiendo auditoría",
				zap.Error(err),
				zap.String("action", string(entry.Action)),
				zap.String("resource_id", entry.ResourceID))
			continue
		}
		s.logger.Debug("Auditoría registrada",
			zap.String("action", string(entry.Action)),
			zap.String("resource_id", entry.ResourceID))
	}
}

func (s *auditService) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.entries)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *auditService) Dropped() int64 {
	return atomic.LoadInt64(&s.dropped)
}

// auditEntry arma una entrada con snapshots JSON tomados en este momento
func auditEntry(actor models.Actor, action models.AuditAction, resourceType models.ResourceType,
	resourceID, resourceName, baseID string, oldValues, newValues interface{}) *models.AuditLog {
	return &models.AuditLog{
		UserID:       actor.UserID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		ResourceName: resourceName,
		OldValues:    snapshot(oldValues),
		NewValues:    snapshot(newValues),
		BaseID:       baseID,
	}
}

func snapshot(v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
