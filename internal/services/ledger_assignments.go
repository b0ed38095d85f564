package services

import (
	"context"
	"time"

	"asset-ledger/internal/apperrors"
	"asset-ledger/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateAssignment asigna cantidad del activo a una persona y la descuenta del saldo disponible
func (s *ledgerService) CreateAssignment(ctx context.Context, actor models.Actor, req *models.CreateAssignmentRequest) (result *models.AssignmentResult, err error) {
	start := time.Now()
	defer func() { s.metrics.Observe("create_assignment", start, err) }()

	logger := s.logger.With(
		zap.String("operation", "create_assignment"),
		zap.String("asset_id", req.AssetID),
		zap.String("base_id", req.BaseID),
		zap.Int("quantity", req.Quantity),
		zap.String("user_id", actor.UserID),
	)

	v := &apperrors.ValidationError{}
	requireText(v, "asset_id", req.AssetID)
	requireText(v, "personnel_name", req.PersonnelName)
	requirePositive(v, "quantity", req.Quantity)
	requireText(v, "base_id", req.BaseID)
	if err := v.OrNil(); err != nil {
		logger.Warn("❌ Asignación rechazada por validación", zap.Error(err))
		return nil, err
	}

	assignment := &models.Assignment{
		ID:            uuid.NewString(),
		AssetID:       req.AssetID,
		PersonnelName: req.PersonnelName,
		Quantity:      req.Quantity,
		BaseID:        req.BaseID,
		AssignedBy:    actor.UserID,
	}

	var updated *models.Asset
	err = s.retry(ctx, logger, "create_assignment", "Asset", req.AssetID, func() error {
		asset, err := loadAsset(ctx, s.assets, req.AssetID)
		if err != nil {
			return err
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

		return s.ledger.ApplyAssignment(ctx, updated, asset.Version, assignment)
	})
	if err != nil {
		logger.Warn("❌ Asignación no registrada", zap.Error(err))
		return nil, err
	}

	logger.Info("✅ Asignación registrada",
		zap.String("assignment_id", assignment.ID),
		zap.String("personnel_name", assignment.PersonnelName),
		zap.Int("closing_balance", updated.ClosingBalance))

	s.audit.Record(ctx, auditEntry(actor, models.AuditActionAssignment, models.ResourceAssignment,
		assignment.ID, updated.Name, assignment.BaseID, nil, assignment))
	s.invalidate(ctx, logger, assignment.BaseID, updated.BaseID)

	return &models.AssignmentResult{Assignment: assignment, Asset: updated.Balances()}, nil
}

func (s *ledgerService) GetAssignment(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if assignment == nil {
		return nil, &apperrors.NotFoundError{Resource: "Assignment", ID: id}
	}
	return assignment, nil
}

// UpdateAssignment edita la asignación sin devolver ni descontar stock
func (s *ledgerService) UpdateAssignment(ctx context.Context, actor models.Actor, id string, req *models.UpdateAssignmentRequest) (assignment *models.Assignment, err error) {
	start := time.Now()
	defer func() { s.metrics.Observe("update_assignment", start, err) }()

	logger := s.logger.With(
		zap.String("operation", "update_assignment"),
		zap.String("assignment_id", id),
		zap.String("user_id", actor.UserID),
	)

	assignment, err = s.GetAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *assignment

	v := &apperrors.ValidationError{}
	if req.PersonnelName != nil {
		requireText(v, "personnel_name", *req.PersonnelName)
		assignment.PersonnelName = *req.PersonnelName
	}
	if req.Quantity != nil {
		requirePositive(v, "quantity", *req.Quantity)
		assignment.Quantity = *req.Quantity
	}
	if err := v.OrNil(); err != nil {
		logger.Warn("❌ Edición de asignación rechazada", zap.Error(err))
		return nil, err
	}

	if err := s.assignments.Update(ctx, assignment); err != nil {
		logger.Error("❌ Error actualizando asignación", zap.Error(err))
		return nil, err
	}

	logger.Info("✅ Asignación actualizada")

	s.audit.Record(ctx, auditEntry(actor, models.AuditActionUpdate, models.ResourceAssignment,
		assignment.ID, assignment.PersonnelName, assignment.BaseID, &before, assignment))
	s.invalidate(ctx, logger, assignment.BaseID)

	return assignment, nil
}

// DeleteAssignment elimina el registro; el saldo del activo no se restaura
func (s *ledgerService) DeleteAssignment(ctx context.Context, actor models.Actor, id string) (err error) {
	start := time.Now()
	defer func() { s.metrics.Observe("delete_assignment", start, err) }()

	logger := s.logger.With(
		zap.String("operation", "delete_assignment"),
		zap.String("assignment_id", id),
		zap.String("user_id", actor.UserID),
	)

	assignment, err := s.GetAssignment(ctx, id)
	if err != nil {
		return err
	}

	deleted, err := s.assignments.Delete(ctx, id)
	if err != nil {
		logger.Error("❌ Error eliminando asignación", zap.Error(err))
		return err
	}
	if !deleted {
		return &apperrors.NotFoundError{Resource: "Assignment", ID: id}
	}

	logger.Info("🗑️ Asignación eliminada")

	s.audit.Record(ctx, auditEntry(actor, models.AuditActionDelete, models.ResourceAssignment,
		assignment.ID, assignment.PersonnelName, assignment.BaseID, assignment, nil))
	s.invalidate(ctx, logger, assignment.BaseID)

	return nil
}
