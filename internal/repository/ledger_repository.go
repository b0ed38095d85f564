package repository

import (
	"context"
	"database/sql"

	"asset-ledger/internal/models"
)

// LedgerRepository agrupa las escrituras que deben confirmarse junto con el
// nuevo saldo del activo. Cada método corre en una sola transacción y falla con
// apperrors.ErrConcurrentModification si la versión del activo ya cambió.
type LedgerRepository interface {
	ApplyExpenditure(ctx context.Context, asset *models.Asset, expectedVersion int, expenditure *models.Expenditure) error
	ApplyAssignment(ctx context.Context, asset *models.Asset, expectedVersion int, assignment *models.Assignment) error
	ApplyTransferOut(ctx context.Context, asset *models.Asset, expectedVersion int, transfer *models.Transfer) error
	ApplyTransferCompletion(ctx context.Context, asset *models.Asset, expectedVersion int, transfer *models.Transfer, fromStatus models.TransferStatus) error
}

type ledgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) ApplyExpenditure(ctx context.Context, asset *models.Asset, expectedVersion int, e *models.Expenditure) error {
	return r.apply(ctx, asset, expectedVersion, func(tx *sql.Tx) error {
		return insertExpenditure(ctx, tx, e)
	})
}

func (r *ledgerRepository) ApplyAssignment(ctx context.Context, asset *models.Asset, expectedVersion int, a *models.Assignment) error {
	return r.apply(ctx, asset, expectedVersion, func(tx *sql.Tx) error {
		return insertAssignment(ctx, tx, a)
	})
}

func (r *ledgerRepository) ApplyTransferOut(ctx context.Context, asset *models.Asset, expectedVersion int, t *models.Transfer) error {
	return r.apply(ctx, asset, expectedVersion, func(tx *sql.Tx) error {
		return insertTransfer(ctx, tx, t)
	})
}

// ApplyTransferCompletion mueve el saldo y cambia el estado; la guarda sobre
// fromStatus impide completar dos veces la misma transferencia.
func (r *ledgerRepository) ApplyTransferCompletion(ctx context.Context, asset *models.Asset, expectedVersion int, t *models.Transfer, fromStatus models.TransferStatus) error {
	return r.apply(ctx, asset, expectedVersion, func(tx *sql.Tx) error {
		return updateTransferStatus(ctx, tx, t, fromStatus)
	})
}

func (r *ledgerRepository) apply(ctx context.Context, asset *models.Asset, expectedVersion int, record func(tx *sql.Tx) error) error {
	// Se trabaja sobre una copia para no dejar el activo a medio actualizar si hay rollback
	updated := *asset
	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := updateAssetBalances(ctx, tx, &updated, expectedVersion); err != nil {
			return err
		}
		return record(tx)
	})
	if err != nil {
		return err
	}
	*asset = updated
	return nil
}
