package repository

import (
	"context"
	"database/sql"
	"fmt"

	"asset-ledger/internal/models"
)

// TransferRepository define la interfaz para transferencias
type TransferRepository interface {
	GetByID(ctx context.Context, id string) (*models.Transfer, error)
	// UpdateStatus cambia el estado solo si sigue siendo fromStatus
	UpdateStatus(ctx context.Context, transfer *models.Transfer, fromStatus models.TransferStatus) error
}

type transferRepository struct {
	db    *sql.DB
	stmts map[string]*sql.Stmt
}

const transferColumns = `id, asset_id, from_base_id, to_base_id, quantity, transferred_by,
	status, notes, transfer_date, completed_at, created_at, updated_at`

// completed_at se fija una sola vez, en la transición a completed
const updateTransferStatusSQL = `
	UPDATE transfers SET status = $1, updated_at = $2, completed_at = COALESCE(completed_at, $3)
	WHERE id = $4 AND status = $5
`

func NewTransferRepository(db *sql.DB) (TransferRepository, error) {
	stmts, err := prepareStatements(db, map[string]string{
		"get_transfer": `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1`,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return &transferRepository{db: db, stmts: stmts}, nil
}

func scanTransfer(row rowScanner) (*models.Transfer, error) {
	var t models.Transfer
	var completedAt sql.NullTime
	err := row.Scan(
		&t.ID, &t.AssetID, &t.FromBaseID, &t.ToBaseID, &t.Quantity, &t.TransferredBy,
		&t.Status, &t.Notes, &t.TransferDate, &completedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return &t, nil
}

// GetByID devuelve nil, nil si la transferencia no existe
func (r *transferRepository) GetByID(ctx context.Context, id string) (*models.Transfer, error) {
	t, err := scanTransfer(r.stmts["get_transfer"].QueryRowContext(ctx, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}
	return t, nil
}

func (r *transferRepository) UpdateStatus(ctx context.Context, t *models.Transfer, fromStatus models.TransferStatus) error {
	return updateTransferStatus(ctx, r.db, t, fromStatus)
}

func insertTransfer(ctx context.Context, db DBTX, t *models.Transfer) error {
	now := utcNow()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.TransferDate.IsZero() {
		t.TransferDate = now
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO transfers (`+transferColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.AssetID, t.FromBaseID, t.ToBaseID, t.Quantity, t.TransferredBy,
		t.Status, t.Notes, t.TransferDate, nullableTime(t.CompletedAt), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if mapped := mapWriteError(err, t.ID); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to create transfer: %w", err)
	}
	return nil
}

func updateTransferStatus(ctx context.Context, db DBTX, t *models.Transfer, fromStatus models.TransferStatus) error {
	now := utcNow()
	var completedAt interface{}
	if t.Status == models.TransferStatusCompleted {
		completedAt = now
	}
	result, err := db.ExecContext(ctx, updateTransferStatusSQL, t.Status, now, completedAt, t.ID, fromStatus)
	if err != nil {
		return fmt.Errorf("failed to update transfer status: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return err
	}
	t.UpdatedAt = now
	if t.Status == models.TransferStatusCompleted && t.CompletedAt == nil {
		t.CompletedAt = &now
	}
	return nil
}
