package services

import (
	"context"
	"time"

	"asset-ledger/internal/apperrors"
	"asset-ledger/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateExpenditure consume cantidad del saldo disponible del activo.
// Orden de verificación: el activo existe, la cantidad es positiva y el saldo alcanza.
func (s *ledgerService) CreateExpenditure(ctx context.Context, actor models.Actor, req *models.CreateExpenditureRequest) (result *models.ExpenditureResult, err error) {
	start := time.Now()
	defer func() { s.metrics.Observe("create_expenditure", start, err) }()

	expendedBy := req.ExpendedBy
	if expendedBy == "" {
		expendedBy = actor.UserID
	}

	logger := s.logger.With(
		zap.String("operation", "create_expenditure"),
		zap.String("asset_id", req.AssetID),
		zap.Int("quantity", req.Quantity),
		zap.String("expended_by", expendedBy),
	)

	v := &apperrors.ValidationError{}
	requireText(v, "asset_id", req.AssetID)
	requireText(v, "expended_by", expendedBy)
	requireText(v, "reason", req.Reason)
	if err := v.OrNil(); err != nil {
		logger.Warn("❌ Consumo rechazado por validación", zap.Error(err))
		return nil, err
	}

	expenditure := &models.Expenditure{
		ID:         uuid.NewString(),
		AssetID:    req.AssetID,
		Quantity:   req.Quantity,
		ExpendedBy: expendedBy,
		Reason:     req.Reason,
		Notes:      req.Notes,
	}

	var updated *models.Asset
	err = s.retry(ctx, logger, "create_expenditure", "Asset", req.AssetID, func() error {
		asset, err := loadAsset(ctx, s.assets, req.AssetID)
		if err != nil {
			return err
		}
		if req.Quantity < 1 {
			return apperrors.NewValidationError("quantity", "quantity must be a positive integer")
		}
		if asset.ClosingBalance < req.Quantity {
			return &apperrors.InsufficientStockError{
				AssetID:   asset.AssetID,
				Available: asset.ClosingBalance,
				Requested: req.Quantity,
			}
		}

		updated = asset.Clone()
		updated.ClosingBalance -= req.Quantity
		updated.NetMovement -= req.Quantity
		expenditure.BaseID = asset.BaseID

		return s.ledger.ApplyExpenditure(ctx, updated, asset.Version, expenditure)
	})
	if err != nil {
		logger.Warn("❌ Consumo no registrado", zap.Error(err))
		return nil, err
	}

	logger.Info("✅ Consumo registrado",
		zap.String("expenditure_id", expenditure.ID),
		zap.Int("closing_balance", updated.ClosingBalance),
		zap.Int("net_movement", updated.NetMovement))

	s.audit.Record(ctx, auditEntry(actor, models.AuditActionExpenditure, models.ResourceExpenditure,
		expenditure.ID, updated.Name, updated.BaseID, nil, expenditure))
	s.invalidate(ctx, logger, updated.BaseID)

	return &models.ExpenditureResult{Expenditure: expenditure, Asset: updated.Balances()}, nil
}

func (s *ledgerService) GetExpenditure(ctx context.Context, id string) (*models.Expenditure, error) {
	expenditure, err := s.expenditures.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if expenditure == nil {
		return nil, &apperrors.NotFoundError{Resource: "Expenditure", ID: id}
	}
	return expenditure, nil
}
