package repository

import (
	"context"
	"database/sql"
	"fmt"

	"asset-ledger/internal/apperrors"
	"asset-ledger/internal/models"
)

// AssetRepository define la interfaz para operaciones sobre activos
type AssetRepository interface {
	GetByID(ctx context.Context, assetID string) (*models.Asset, error)
	Create(ctx context.Context, asset *models.Asset) error
	// UpdateDetails y UpdateBalances escriben solo si la versión coincide
	UpdateDetails(ctx context.Context, asset *models.Asset, expectedVersion int) error
	UpdateBalances(ctx context.Context, asset *models.Asset, expectedVersion int) error
	ListByBase(ctx context.Context, baseID string) ([]*models.Asset, error)
}

type assetRepository struct {
	db    *sql.DB
	stmts map[string]*sql.Stmt
}

const assetColumns = `asset_id, name, type, quantity, opening_balance, closing_balance,
	net_movement, unit_price, base_id, status, version, created_at, updated_at`

const updateAssetBalancesSQL = `
	UPDATE assets
	SET quantity = $1, closing_balance = $2, net_movement = $3, base_id = $4,
		version = version + 1, updated_at = $5
	WHERE asset_id = $6 AND version = $7
`

// NewAssetRepository crea una nueva instancia del repository
func NewAssetRepository(db *sql.DB) (AssetRepository, error) {
	stmts, err := prepareStatements(db, map[string]string{
		"get_asset": `SELECT ` + assetColumns + ` FROM assets WHERE asset_id = $1`,
		"list_by_base": `SELECT ` + assetColumns + ` FROM assets WHERE base_id = $1 ORDER BY asset_id`,
		"create_asset": `
			INSERT INTO assets (` + assetColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`,
		"update_details": `
			UPDATE assets
			SET name = $1, type = $2, status = $3, unit_price = $4,
				version = version + 1, updated_at = $5
			WHERE asset_id = $6 AND version = $7
		`,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return &assetRepository{db: db, stmts: stmts}, nil
}

func scanAsset(row rowScanner) (*models.Asset, error) {
	var a models.Asset
	err := row.Scan(
		&a.AssetID, &a.Name, &a.Type, &a.Quantity, &a.OpeningBalance, &a.ClosingBalance,
		&a.NetMovement, &a.UnitPrice, &a.BaseID, &a.Status, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByID obtiene un activo; devuelve nil, nil si no existe
func (r *assetRepository) GetByID(ctx context.Context, assetID string) (*models.Asset, error) {
	asset, err := scanAsset(r.stmts["get_asset"].QueryRowContext(ctx, assetID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return asset, nil
}

// Create inserta un activo nuevo con versión 1
func (r *assetRepository) Create(ctx context.Context, asset *models.Asset) error {
	now := utcNow()
	asset.Version = 1
	asset.CreatedAt = now
	asset.UpdatedAt = now

	_, err := r.stmts["create_asset"].ExecContext(ctx,
		asset.AssetID, asset.Name, asset.Type, asset.Quantity, asset.OpeningBalance,
		asset.ClosingBalance, asset.NetMovement, asset.UnitPrice, asset.BaseID, asset.Status,
		asset.Version, asset.CreatedAt, asset.UpdatedAt,
	)
	if err != nil {
		if mapped := mapWriteError(err, asset.AssetID); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to create asset: %w", err)
	}
	return nil
}

func (r *assetRepository) UpdateDetails(ctx context.Context, asset *models.Asset, expectedVersion int) error {
	now := utcNow()
	result, err := r.stmts["update_details"].ExecContext(ctx,
		asset.Name, asset.Type, asset.Status, asset.UnitPrice, now, asset.AssetID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update asset details: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return err
	}
	asset.Version = expectedVersion + 1
	asset.UpdatedAt = now
	return nil
}

func (r *assetRepository) UpdateBalances(ctx context.Context, asset *models.Asset, expectedVersion int) error {
	return updateAssetBalances(ctx, r.db, asset, expectedVersion)
}

func (r *assetRepository) ListByBase(ctx context.Context, baseID string) ([]*models.Asset, error) {
	rows, err := r.stmts["list_by_base"].QueryContext(ctx, baseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var assets []*models.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

// updateAssetBalances es la escritura condicional usada por todas las operaciones del libro
func updateAssetBalances(ctx context.Context, db DBTX, asset *models.Asset, expectedVersion int) error {
	now := utcNow()
	result, err := db.ExecContext(ctx, updateAssetBalancesSQL,
		asset.Quantity, asset.ClosingBalance, asset.NetMovement, asset.BaseID, now,
		asset.AssetID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update asset balances: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return err
	}
	asset.Version = expectedVersion + 1
	asset.UpdatedAt = now
	return nil
}

// expectOneRow devuelve ErrConcurrentModification si la guarda de versión no encontró la fila
func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.ErrConcurrentModification
	}
	return nil
}
