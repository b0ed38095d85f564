package services

import (
	"context"
	"fmt"
	"time"

	"asset-ledger/internal/apperrors"
	"asset-ledger/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreatePurchase registra una compra entregada. No modifica los saldos del activo:
// las compras solo cuentan en el movimiento neto calculado por base.
func (s *ledgerService) CreatePurchase(ctx context.Context, actor models.Actor, req *models.CreatePurchaseRequest) (purchase *models.Purchase, err error) {
	start := time.Now()
	defer func() { s.metrics.Observe("create_purchase", start, err) }()

	logger := s.logger.With(
		zap.String("operation", "create_purchase"),
		zap.String("asset_id", req.AssetID),
		zap.String("base_id", req.BaseID),
		zap.Int("quantity", req.Quantity),
		zap.String("user_id", actor.UserID),
	)

	v := &apperrors.ValidationError{}
	requireText(v, "asset_id", req.AssetID)
	requireText(v, "base_id", req.BaseID)
	requirePositive(v, "quantity", req.Quantity)
	if req.UnitPrice.IsNegative() {
		v.Add("unit_price", "unit_price must be greater than or equal to 0")
	}
	if err := v.OrNil(); err != nil {
		logger.Warn("❌ Compra rechazada por validación", zap.Error(err))
		return nil, err
	}

	asset, err := loadAsset(ctx, s.assets, req.AssetID)
	if err != nil {
		logger.Warn("❌ Activo no disponible para la compra", zap.Error(err))
		return nil, err
	}

	purchase = &models.Purchase{
		ID:        uuid.NewString(),
		AssetID:   req.AssetID,
		BaseID:    req.BaseID,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		TotalCost: req.UnitPrice.Mul(decimal.NewFromInt(int64(req.Quantity))),
		Status:    models.PurchaseStatusDelivered,
		CreatedBy: actor.UserID,
	}

	if err := s.purchases.Create(ctx, purchase); err != nil {
		logger.Error("❌ Error registrando compra", zap.Error(err))
		return nil, err
	}

	logger.Info("✅ Compra registrada",
		zap.String("purchase_id", purchase.ID),
		zap.String("total_cost", purchase.TotalCost.StringFixed(2)))

	s.audit.Record(ctx, auditEntry(actor, models.AuditActionPurchase, models.ResourcePurchase,
		purchase.ID, asset.Name, purchase.BaseID, nil, purchase))
	s.invalidate(ctx, logger, purchase.BaseID)

	return purchase, nil
}

func (s *ledgerService) GetPurchase(ctx context.Context, id string) (*models.Purchase, error) {
	purchase, err := s.purchases.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if purchase == nil {
		return nil, &apperrors.NotFoundError{Resource: "Purchase", ID: id}
	}
	return purchase, nil
}

// UpdatePurchase edita campos de la compra. total_cost no se recalcula y el
// activo no se ajusta.
func (s *ledgerService) UpdatePurchase(ctx context.Context, actor models.Actor, id string, req *models.UpdatePurchaseRequest) (purchase *models.Purchase, err error) {
	start := time.Now()
	defer func() { s.metrics.Observe("update_purchase", start, err) }()

	logger := s.logger.With(
		zap.String("operation", "update_purchase"),
		zap.String("purchase_id", id),
		zap.String("user_id", actor.UserID),
	)

	purchase, err = s.GetPurchase(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *purchase

	v := &apperrors.ValidationError{}
	if req.Status != nil {
		if !req.Status.IsValid() {
			v.Add("status", fmt.Sprintf("invalid purchase status: %s", *req.Status))
		}
		purchase.Status = *req.Status
	}
	if req.Quantity != nil {
		requirePositive(v, "quantity", *req.Quantity)
		purchase.Quantity = *req.Quantity
	}
	if req.UnitPrice != nil {
		if req.UnitPrice.IsNegative() {
			v.Add("unit_price", "unit_price must be greater than or equal to 0")
		}
		purchase.UnitPrice = *req.UnitPrice
	}
	if req.PurchaseDate != nil {
		purchase.PurchaseDate = req.PurchaseDate.UTC()
	}
	if err := v.OrNil(); err != nil {
		logger.Warn("❌ Edición de compra rechazada", zap.Error(err))
		return nil, err
	}

	if err := s.purchases.Update(ctx, purchase); err != nil {
		logger.Error("❌ Error actualizando compra", zap.Error(err))
		return nil, err
	}

	logger.Info("✅ Compra actualizada", zap.String("status", string(purchase.Status)))

	s.audit.Record(ctx, auditEntry(actor, models.AuditActionUpdate, models.ResourcePurchase,
		purchase.ID, purchase.AssetID, purchase.BaseID, &before, purchase))
	s.invalidate(ctx, logger, purchase.BaseID)

	return purchase, nil
}

func (s *ledgerService) DeletePurchase(ctx context.Context, actor models.Actor, id string) (err error) {
	start := time.Now()
	defer func() { s.metrics.Observe("delete_purchase", start, err) }()

	logger := s.logger.With(
		zap.String("operation", "delete_purchase"),
		zap.String("purchase_id", id),
		zap.String("user_id", actor.UserID),
	)

	purchase, err := s.GetPurchase(ctx, id)
	if err != nil {
		return err
	}

	deleted, err := s.purchases.Delete(ctx, id)
	if err != nil {
		logger.Error("❌ Error eliminando compra", zap.Error(err))
		return err
	}
	if !deleted {
		return &apperrors.NotFoundError{Resource: "Purchase", ID: id}
	}

	logger.Info("🗑️ Compra eliminada")

	s.audit.Record(ctx, auditEntry(actor, models.AuditActionDelete, models.ResourcePurchase,
		purchase.ID, purchase.AssetID, purchase.BaseID, purchase, nil))
	s.invalidate(ctx, logger, purchase.BaseID)

	return nil
}
