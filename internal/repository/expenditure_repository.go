package repository

import (
	"context"
	"database/sql"
	"fmt"

	"asset-ledger/internal/models"
)

type ExpenditureRepository interface {
	GetByID(ctx context.Context, id string) (*models.Expenditure, error)
}

type expenditureRepository struct {
	db    *sql.DB
	stmts map[string]*sql.Stmt
}

const expenditureColumns = `id, asset_id, base_id, quantity, expended_by, reason, notes,
	expenditure_date, created_at`

func NewExpenditureRepository(db *sql.DB) (ExpenditureRepository, error) {
	stmts, err := prepareStatements(db, map[string]string{
		"get_expenditure": `SELECT ` + expenditureColumns + ` FROM expenditures WHERE id = $1`,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return &expenditureRepository{db: db, stmts: stmts}, nil
}

func (r *expenditureRepository) GetByID(ctx context.Context, id string) (*models.Expenditure, error) {
	var e models.Expenditure
	err := r.stmts["get_expenditure"].QueryRowContext(ctx, id).Scan(
		&e.ID, &e.AssetID, &e.BaseID, &e.Quantity, &e.ExpendedBy, &e.Reason, &e.Notes,
		&e.ExpenditureDate, &e.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expenditure: %w", err)
	}
	return &e, nil
}

func insertExpenditure(ctx context.Context, db DBTX, e *models.Expenditure) error {
	now := utcNow()
	e.CreatedAt = now
	if e.ExpenditureDate.IsZero() {
		e.ExpenditureDate = now
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO expenditures (`+expenditureColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.AssetID, e.BaseID, e.Quantity, e.ExpendedBy, e.Reason, e.Notes,
		e.ExpenditureDate, e.CreatedAt,
	)
	if err != nil {
		if mapped := mapWriteError(err, e.ID); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to create expenditure: %w", err)
	}
	return nil
}
