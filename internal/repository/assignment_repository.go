package repository

import (
	"context"
	"database/sql"
	"fmt"

	"asset-ledger/internal/models"
)

// AssignmentRepository define la interfaz para asignaciones.
// Update y Delete no tocan el saldo del activo.
type AssignmentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Assignment, error)
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id string) (bool, error)
}

type assignmentRepository struct {
	db    *sql.DB
	stmts map[string]*sql.Stmt
}

const assignmentColumns = `id, asset_id, personnel_name, quantity, base_id, assigned_by,
	assigned_date, created_at, updated_at`

func NewAssignmentRepository(db *sql.DB) (AssignmentRepository, error) {
	stmts, err := prepareStatements(db, map[string]string{
		"get_assignment": `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`,
		"update_assignment": `
			UPDATE assignments SET personnel_name = $1, quantity = $2, updated_at = $3
			WHERE id = $4
		`,
		"delete_assignment": `DELETE FROM assignments WHERE id = $1`,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return &assignmentRepository{db: db, stmts: stmts}, nil
}

func scanAssignment(row rowScanner) (*models.Assignment, error) {
	var a models.Assignment
	err := row.Scan(
		&a.ID, &a.AssetID, &a.PersonnelName, &a.Quantity, &a.BaseID, &a.AssignedBy,
		&a.AssignedDate, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	a, err := scanAssignment(r.stmts["get_assignment"].QueryRowContext(ctx, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return a, nil
}

func (r *assignmentRepository) Update(ctx context.Context, a *models.Assignment) error {
	a.UpdatedAt = utcNow()
	result, err := r.stmts["update_assignment"].ExecContext(ctx, a.PersonnelName, a.Quantity, a.UpdatedAt, a.ID)
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no assignment record found for id %s", a.ID)
	}
	return nil
}

func (r *assignmentRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.stmts["delete_assignment"].ExecContext(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete assignment: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func insertAssignment(ctx context.Context, db DBTX, a *models.Assignment) error {
	now := utcNow()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.AssignedDate.IsZero() {
		a.AssignedDate = now
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO assignments (`+assignmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.AssetID, a.PersonnelName, a.Quantity, a.BaseID, a.AssignedBy,
		a.AssignedDate, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if mapped := mapWriteError(err, a.ID); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}
