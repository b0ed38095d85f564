// Package audit contiene los destinos donde se persiste la bitácora de auditoría.
package audit

import (
	"context"
	"errors"
	"fmt"

	"asset-ledger/internal/models"
	"asset-ledger/internal/repository"
)

// Sink destino de escritura de la bitácora
type Sink interface {
	Write(ctx context.Context, entry *models.AuditLog) error
	Name() string
}

// DatabaseSink guarda las entradas en la tabla audit_logs
type DatabaseSink struct {
	repo repository.AuditRepository
}

func NewDatabaseSink(repo repository.AuditRepository) *DatabaseSink {
	return &DatabaseSink{repo: repo}
}

func (s *DatabaseSink) Write(ctx context.Context, entry *models.AuditLog) error {
	return s.repo.Insert(ctx, entry)
}

func (s *DatabaseSink) Name() string { return "database" }

// MultiSink replica cada entrada en todos los destinos y acumula los errores
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, entry *models.AuditLog) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Write(ctx, entry); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) Name() string { return "multi" }
