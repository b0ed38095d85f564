package services

import (
	"context"
	"fmt"
	"time"

	"asset-ledger/internal/apperrors"
	"asset-ledger/internal/cache"
	"asset-ledger/internal/metrics"
	"asset-ledger/internal/models"
	"asset-ledger/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AssetService alta y mantenimiento de activos fuera del libro.
// Las cantidades solo cambian aquí mediante la corrección administrativa.
type AssetService interface {
	CreateAsset(ctx context.Context, actor models.Actor, req *models.CreateAssetRequest) (*models.Asset, error)
	GetAsset(ctx context.Context, assetID string) (*models.Asset, error)
	UpdateAssetDetails(ctx context.Context, actor models.Actor, assetID string, req *models.UpdateAssetDetailsRequest) (*models.Asset, error)
	CorrectAssetBalance(ctx context.Context, actor models.Actor, assetID string, req *models.CorrectAssetBalanceRequest) (*models.Asset, error)
}

type assetService struct {
	assets     repository.AssetRepository
	audit      AuditService
	cache      *cache.ReportCache
	metrics    *metrics.Ledger
	logger     *zap.Logger
	maxRetries int
}

func NewAssetService(assets repository.AssetRepository, audit AuditService, rc *cache.ReportCache,
	m *metrics.Ledger, logger *zap.Logger, maxRetries int) AssetService {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &assetService{
		assets:     assets,
		audit:      audit,
		cache:      rc,
		metrics:    m,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// CreateAsset registra un activo con openingBalance = closingBalance = quantity
func (s *assetService) CreateAsset(ctx context.Context, actor models.Actor, req *models.CreateAssetRequest) (asset *models.Asset, err error) {
	start := time.Now()
	defer func() { s.metrics.Observe("create_asset", start, err) }()

	logger := s.logger.With(
		zap.String("operation", "create_asset"),
		zap.String("asset_id", req.AssetID),
		zap.String("base_id", req.BaseID),
		zap.String("user_id", actor.UserID),
	)

	status := req.Status
	if status == "" {
		status = models.AssetStatusAvailable
	}

	v := &apperrors.ValidationError{}
	requireText(v, "name", req.Name)
	if !req.Type.IsValid() {
		v.Add("type", fmt.Sprintf("invalid asset type: %q", req.Type))
	}
	if req.Quantity < 0 {
		v.Add("quantity", "quantity must be greater than or equal to 0")
	}
	requireText(v, "base_id", req.BaseID)
	if req.UnitPrice.IsNegative() {
		v.Add("unit_price", "unit_price must be greater than or equal to 0")
	}
	if !status.IsValid() {
		v.Add("status", fmt.Sprintf("invalid asset status: %q", status))
	}
	if err := v.OrNil(); err != nil {
		logger.Warn("❌ Alta de activo rechazada", zap.Error(err))
		return nil, err
	}

	assetID := req.AssetID
	if assetID == "" {
		assetID = uuid.NewString()
	}

	asset = &models.Asset{
		AssetID:        assetID,
		Name:           req.Name,
		Type:           req.Type,
		Quantity:       req.Quantity,
		OpeningBalance: req.Quantity,
		ClosingBalance: req.Quantity,
		UnitPrice:      req.UnitPrice,
		BaseID:         req.BaseID,
		Status:         status,
	}

	if err := s.assets.Create(ctx, asset); err != nil {
		logger.Warn("❌ Error creando activo", zap.Error(err))
		return nil, err
	}

	logger.Info("✅ Activo creado",
		zap.String("asset_id", asset.AssetID),
		zap.Int("opening_balance", asset.OpeningBalance))

	s.audit.Record(ctx, auditEntry(actor, models.AuditActionAssetCreate, models.ResourceAsset,
		asset.AssetID, asset.Name, asset.BaseID, nil, asset))
	invalidateReports(ctx, s.cache, logger, asset.BaseID)

	return asset, nil
}

func (s *assetService) GetAsset(ctx context.Context, assetID string) (*models.Asset, error) {
	return loadAsset(ctx, s.assets, assetID)
}

// UpdateAssetDetails edita nombre, tipo, estado y precio unitario. Nunca toca cantidades.
func (s *assetService) UpdateAssetDetails(ctx context.Context, actor models.Actor, assetID string, req *models.UpdateAssetDetailsRequest) (asset *models.Asset, err error) {
	start := time.Now()
	defer func() { s.metrics.Observe("update_asset_details", start, err) }()

	logger := s.logger.With(
		zap.String("operation", "update_asset_details"),
		zap.String("asset_id", assetID),
		zap.String("user_id", actor.UserID),
	)

	v := &apperrors.ValidationError{}
	if req.Name != nil {
		requireText(v, "name", *req.Name)
	}
	if req.Type != nil && !req.Type.IsValid() {
		v.Add("type", fmt.Sprintf("invalid asset type: %q", *req.Type))
	}
	if req.Status != nil && !req.Status.IsValid() {
		v.Add("status", fmt.Sprintf("invalid asset status: %q", *req.Status))
	}
	if req.UnitPrice != nil && req.UnitPrice.IsNegative() {
		v.Add("unit_price", "unit_price must be greater than or equal to 0")
	}
	if err := v.OrNil(); err != nil {
		logger.Warn("❌ Edición de activo rechazada", zap.Error(err))
		return nil, err
	}

	var before *models.Asset
	err = withRetry(ctx, s.maxRetries, s.metrics, logger, "update_asset_details", "Asset", assetID, func() error {
		stored, err := loadAsset(ctx, s.assets, assetID)
		if err != nil {
			return err
		}
		before = stored
		asset = stored.Clone()
		if req.Name != nil {
			asset.Name = *req.Name
		}
		if req.Type != nil {
			asset.Type = *req.Type
		}
		if req.Status != nil {
			asset.Status = *req.Status
		}
		if req.UnitPrice != nil {
			asset.UnitPrice = *req.UnitPrice
		}
		return s.assets.UpdateDetails(ctx, asset, stored.Version)
	})
	if err != nil {
		logger.Warn("❌ Activo no actualizado", zap.Error(err))
		return nil, err
	}

	logger.Info("✅ Activo actualizado", zap.Int("version", asset.Version))

	s.audit.Record(ctx, auditEntry(actor, models.AuditActionUpdate, models.ResourceAsset,
		asset.AssetID, asset.Name, asset.BaseID, before, asset))

	return asset, nil
}

// CorrectAssetBalance fija saldos explícitos. Solo administradores.
func (s *assetService) CorrectAssetBalance(ctx context.Context, actor models.Actor, assetID string, req *models.CorrectAssetBalanceRequest) (asset *models.Asset, err error) {
	start := time.Now()
	defer func() { s.metrics.Observe("correct_asset_balance", start, err) }()

	logger := s.logger.With(
		zap.String("operation", "correct_asset_balance"),
		zap.String("asset_id", assetID),
		zap.String("user_id", actor.UserID),
		zap.String("role", string(actor.Role)),
	)

	if !actor.IsAdmin() {
		logger.Warn("⛔ Corrección de saldo denegada")
		return nil, &apperrors.ForbiddenError{Action: "correct asset balances", Role: string(actor.Role)}
	}

	v := &apperrors.ValidationError{}
	requireText(v, "reason", req.Reason)
	if req.ClosingBalance == nil && req.Quantity == nil {
		v.Add("closing_balance", "closing_balance or quantity must be provided")
	}
	if req.ClosingBalance != nil && *req.ClosingBalance < 0 {
		v.Add("closing_balance", "closing_balance must be greater than or equal to 0")
	}
	if req.Quantity != nil && *req.Quantity < 0 {
		v.Add("quantity", "quantity must be greater than or equal to 0")
	}
	if err := v.OrNil(); err != nil {
		logger.Warn("❌ Corrección de saldo rechazada", zap.Error(err))
		return nil, err
	}

	var before *models.Asset
	err = withRetry(ctx, s.maxRetries, s.metrics, logger, "correct_asset_balance", "Asset", assetID, func() error {
		stored, err := loadAsset(ctx, s.assets, assetID)
		if err != nil {
			return err
		}
		before = stored
		asset = stored.Clone()
		if req.ClosingBalance != nil {
			asset.ClosingBalance = *req.ClosingBalance
		}
		if req.Quantity != nil {
			asset.Quantity = *req.Quantity
		}
		return s.assets.UpdateBalances(ctx, asset, stored.Version)
	})
	if err != nil {
		logger.Warn("❌ Saldo no corregido", zap.Error(err))
		return nil, err
	}

	logger.Info("🛠️ Saldo corregido",
		zap.Int("closing_balance", asset.ClosingBalance),
		zap.Int("quantity", asset.Quantity),
		zap.String("reason", req.Reason))

	entry := auditEntry(actor, models.AuditActionAssetUpdate, models.ResourceAsset,
		asset.AssetID, asset.Name, asset.BaseID, before.Balances(), asset.Balances())
	entry.Details = req.Reason
	s.audit.Record(ctx, entry)
	invalidateReports(ctx, s.cache, logger, asset.BaseID)

	return asset, nil
}
