package services

import (
	"context"
	"fmt"
	"time"

	"asset-ledger/internal/apperrors"
	"asset-ledger/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateTransfer reserva la cantidad en la base de origen y deja la transferencia en pending
func (s *ledgerService) CreateTransfer(ctx context.Context, actor models.Actor, req *models.CreateTransferRequest) (result *models.TransferResult, err error) {
	start := time.Now()
	defer func() { s.metrics.Observe("create_transfer", start, err) }()

	transferredBy := req.TransferredBy
	if transferredBy == "" {
		transferredBy = actor.UserID
	}

	logger := s.logger.With(
		zap.String("operation", "create_transfer"),
		zap.String("asset_id", req.AssetID),
		zap.String("from_base_id", req.FromBaseID),
		zap.String("to_base_id", req.ToBaseID),
		zap.Int("quantity", req.Quantity),
	)

	v := &apperrors.ValidationError{}
	requireText(v, "asset_id", req.AssetID)
	requireText(v, "from_base_id", req.FromBaseID)
	requireText(v, "to_base_id", req.ToBaseID)
	requirePositive(v, "quantity", req.Quantity)
	requireText(v, "transferred_by", transferredBy)
	if err := v.OrNil(); err != nil {
		logger.Warn("❌ Transferencia rechazada por validación", zap.Error(err))
		return nil, err
	}

	transfer := &models.Transfer{
		ID:            uuid.NewString(),
		AssetID:       req.AssetID,
		FromBaseID:    req.FromBaseID,
		ToBaseID:      req.ToBaseID,
		Quantity:      req.Quantity,
		TransferredBy: transferredBy,
		Status:        models.TransferStatusPending,
		Notes:         req.Notes,
	}

	var updated *models.Asset
	err = s.retry(ctx, logger, "create_transfer", "Asset", req.AssetID, func() error {
		asset, err := loadAsset(ctx, s.assets, req.AssetID)
		if err != nil {
			return err
		}
		if asset.BaseID != req.FromBaseID {
			return apperrors.NewValidationError("from_base_id", "asset doesn't belong to the specified source base")
		}
		if asset.Quantity < req.Quantity {
			return &apperrors.InsufficientStockError{
				AssetID:   asset.AssetID,
				Available: asset.Quantity,
				Requested: req.Quantity,
			}
		}

		updated = asset.Clone()
		updated.Quantity -= req.Quantity
		updated.NetMovement -= req.Quantity

		return s.ledger.ApplyTransferOut(ctx, updated, asset.Version, transfer)
	})
	if err != nil {
		logger.Warn("❌ Transferencia no registrada", zap.Error(err))
		return nil, err
	}

	logger.Info("🚚 Transferencia creada",
		zap.String("transfer_id", transfer.ID),
		zap.Int("quantity_remaining", updated.Quantity),
		zap.Int("net_movement", updated.NetMovement))

	s.audit.Record(ctx, auditEntry(actor, models.AuditActionTransfer, models.ResourceTransfer,
		transfer.ID, updated.Name, transfer.FromBaseID, nil, transfer))
	s.invalidate(ctx, logger, transfer.FromBaseID, transfer.ToBaseID)

	balances := updated.Balances()
	return &models.TransferResult{Transfer: transfer, Asset: &balances}, nil
}

// UpdateTransferStatus cambia el estado de la transferencia. Solo la transición
// hacia completed mueve saldo: suma la cantidad al activo y lo reubica en la base
// destino. Volver a fijar el estado actual no tiene efecto.
func (s *ledgerService) UpdateTransferStatus(ctx context.Context, actor models.Actor, id string, status models.TransferStatus) (result *models.TransferResult, err error) {
	start := time.Now()
	defer func() { s.metrics.Observe("update_transfer_status", start, err) }()

	logger := s.logger.With(
		zap.String("operation", "update_transfer_status"),
		zap.String("transfer_id", id),
		zap.String("status", string(status)),
		zap.String("user_id", actor.UserID),
	)

	if !status.IsValid() {
		err := apperrors.NewValidationError("status", fmt.Sprintf("invalid transfer status: %s", status))
		logger.Warn("❌ Estado de transferencia inválido", zap.Error(err))
		return nil, err
	}

	var (
		transfer   *models.Transfer
		previous   models.TransferStatus
		asset      *models.Asset
		noOpResult bool
	)
	err = s.retry(ctx, logger, "update_transfer_status", "Transfer", id, func() error {
		asset = nil
		noOpResult = false

		current, err := s.GetTransfer(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == status {
			transfer = current
			noOpResult = true
			return nil
		}

		previous = current.Status
		transfer = current
		transfer.Status = status

		if status != models.TransferStatusCompleted {
			return s.transfers.UpdateStatus(ctx, transfer, previous)
		}

		stored, err := loadAsset(ctx, s.assets, transfer.AssetID)
		if err != nil {
			return err
		}
		asset = stored.Clone()
		asset.Quantity += transfer.Quantity
		asset.NetMovement += transfer.Quantity
		asset.BaseID = transfer.ToBaseID

		return s.ledger.ApplyTransferCompletion(ctx, asset, stored.Version, transfer, previous)
	})
	if err != nil {
		logger.Warn("❌ Estado de transferencia no actualizado", zap.Error(err))
		return nil, err
	}

	if noOpResult {
		logger.Info("Transferencia ya estaba en el estado solicitado")
		return &models.TransferResult{Transfer: transfer}, nil
	}

	result = &models.TransferResult{Transfer: transfer}
	if asset != nil {
		balances := asset.Balances()
		result.Asset = &balances
		logger.Info("✅ Transferencia completada",
			zap.String("asset_id", asset.AssetID),
			zap.Int("quantity", asset.Quantity),
			zap.String("base_id", asset.BaseID))
	} else {
		logger.Info("✅ Estado de transferencia actualizado",
			zap.String("previous_status", string(previous)))
	}

	entry := auditEntry(actor, models.AuditActionUpdate, models.ResourceTransfer,
		transfer.ID, transfer.AssetID, transfer.FromBaseID,
		map[string]models.TransferStatus{"status": previous},
		map[string]models.TransferStatus{"status": status})
	entry.Details = fmt.Sprintf("transfer status changed from %s to %s", previous, status)
	s.audit.Record(ctx, entry)
	s.invalidate(ctx, logger, transfer.FromBaseID, transfer.ToBaseID)

	return result, nil
}

func (s *ledgerService) GetTransfer(ctx context.Context, id string) (*models.Transfer, error) {
	transfer, err := s.transfers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if transfer == nil {
		return nil, &apperrors.NotFoundError{Resource: "Transfer", ID: id}
	}
	return transfer, nil
}
