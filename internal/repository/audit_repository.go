package repository

import (
	"context"
	"database/sql"
	"fmt"

	"asset-ledger/internal/models"
)

// AuditRepository persistencia append-only de la bitácora
type AuditRepository interface {
	Insert(ctx context.Context, entry *models.AuditLog) error
	ListByResource(ctx context.Context, resourceType models.ResourceType, resourceID string) ([]*models.AuditLog, error)
}

type auditRepository struct {
	db    *sql.DB
	stmts map[string]*sql.Stmt
}

const auditColumns = `id, user_id, action, resource_type, resource_id, resource_name, details,
	old_values, new_values, base_id, logged_at`

func NewAuditRepository(db *sql.DB) (AuditRepository, error) {
	stmts, err := prepareStatements(db, map[string]string{
		"insert_audit": `
			INSERT INTO audit_logs (` + auditColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
		"list_by_resource": `
			SELECT ` + auditColumns + ` FROM audit_logs
			WHERE resource_type = $1 AND resource_id = $2
			ORDER BY logged_at ASC
		`,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return &auditRepository{db: db, stmts: stmts}, nil
}

func (r *auditRepository) Insert(ctx context.Context, e *models.AuditLog) error {
	_, err := r.stmts["insert_audit"].ExecContext(ctx,
		e.ID, e.UserID, e.Action, e.ResourceType, e.ResourceID, e.ResourceName, e.Details,
		nullableJSON(e.OldValues), nullableJSON(e.NewValues), e.BaseID, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

func (r *auditRepository) ListByResource(ctx context.Context, resourceType models.ResourceType, resourceID string) ([]*models.AuditLog, error) {
	rows, err := r.stmts["list_by_resource"].QueryContext(ctx, resourceType, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditLog
	for rows.Next() {
		var e models.AuditLog
		var oldValues, newValues []byte
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.Action, &e.ResourceType, &e.ResourceID, &e.ResourceName, &e.Details,
			&oldValues, &newValues, &e.BaseID, &e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		e.OldValues = oldValues
		e.NewValues = newValues
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
