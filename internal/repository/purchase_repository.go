package repository

import (
	"context"
	"database/sql"
	"fmt"

	"asset-ledger/internal/models"
)

// PurchaseRepository define la interfaz para compras
type PurchaseRepository interface {
	Create(ctx context.Context, purchase *models.Purchase) error
	GetByID(ctx context.Context, id string) (*models.Purchase, error)
	Update(ctx context.Context, purchase *models.Purchase) error
	Delete(ctx context.Context, id string) (bool, error)
}

type purchaseRepository struct {
	db    *sql.DB
	stmts map[string]*sql.Stmt
}

const purchaseColumns = `id, asset_id, base_id, quantity, unit_price, total_cost, status,
	purchase_date, created_by, created_at, updated_at`

func NewPurchaseRepository(db *sql.DB) (PurchaseRepository, error) {
	stmts, err := prepareStatements(db, map[string]string{
		"get_purchase": `SELECT ` + purchaseColumns + ` FROM purchases WHERE id = $1`,
		"create_purchase": `
			INSERT INTO purchases (` + purchaseColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
		"update_purchase": `
			UPDATE purchases
			SET quantity = $1, unit_price = $2, status = $3, purchase_date = $4, updated_at = $5
			WHERE id = $6
		`,
		"delete_purchase": `DELETE FROM purchases WHERE id = $1`,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return &purchaseRepository{db: db, stmts: stmts}, nil
}

func scanPurchase(row rowScanner) (*models.Purchase, error) {
	var p models.Purchase
	err := row.Scan(
		&p.ID, &p.AssetID, &p.BaseID, &p.Quantity, &p.UnitPrice, &p.TotalCost, &p.Status,
		&p.PurchaseDate, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *purchaseRepository) Create(ctx context.Context, p *models.Purchase) error {
	now := utcNow()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.PurchaseDate.IsZero() {
		p.PurchaseDate = now
	}

	_, err := r.stmts["create_purchase"].ExecContext(ctx,
		p.ID, p.AssetID, p.BaseID, p.Quantity, p.UnitPrice, p.TotalCost, p.Status,
		p.PurchaseDate, p.CreatedBy, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if mapped := mapWriteError(err, p.ID); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to create purchase: %w", err)
	}
	return nil
}

// GetByID devuelve nil, nil si la compra no existe
func (r *purchaseRepository) GetByID(ctx context.Context, id string) (*models.Purchase, error) {
	p, err := scanPurchase(r.stmts["get_purchase"].QueryRowContext(ctx, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	return p, nil
}

// Update reescribe los campos editables; total_cost queda como se calculó al crear
func (r *purchaseRepository) Update(ctx context.Context, p *models.Purchase) error {
	p.UpdatedAt = utcNow()
	result, err := r.stmts["update_purchase"].ExecContext(ctx,
		p.Quantity, p.UnitPrice, p.Status, p.PurchaseDate, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update purchase: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no purchase record found for id %s", p.ID)
	}
	return nil
}

func (r *purchaseRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.stmts["delete_purchase"].ExecContext(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete purchase: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}
