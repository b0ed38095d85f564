package handlers

import (
	"net/http"
	"time"

	"asset-ledger/internal/models"
	"asset-ledger/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// LedgerHandler expone compras, consumos, asignaciones y transferencias
type LedgerHandler struct {
	ledger    services.LedgerService
	validator *validator.Validate
	logger    *zap.Logger
}

func NewLedgerHandler(ledger services.LedgerService, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledger:    ledger,
		validator: newValidator(),
		logger:    logger,
	}
}

// ===== COMPRAS =====

func (h *LedgerHandler) CreatePurchase(c *gin.Context) {
	start := time.Now()
	logger := requestLogger(h.logger, c, "create_purchase")

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req models.CreatePurchaseRequest
	if !bindAndValidate(c, h.validator, logger, &req) {
		return
	}

	purchase, err := h.ledger.CreatePurchase(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, logger, "Error registrando la compra", err)
		return
	}

	logger.Info("✅ Compra registrada",
		zap.String("purchase_id", purchase.ID),
		zap.String("asset_id", purchase.AssetID),
		zap.Int("quantity", purchase.Quantity),
		zap.String("total_cost", purchase.TotalCost.StringFixed(2)),
		zap.Duration("latency", time.Since(start)))

	respondSuccess(c, http.StatusCreated, "Compra registrada correctamente", purchase)
}

func (h *LedgerHandler) GetPurchase(c *gin.Context) {
	logger := requestLogger(h.logger, c, "get_purchase")

	purchase, err := h.ledger.GetPurchase(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, "Error obteniendo la compra", err)
		return
	}
	respondSuccess(c, http.StatusOK, "Compra obtenida", purchase)
}

func (h *LedgerHandler) UpdatePurchase(c *gin.Context) {
	logger := requestLogger(h.logger, c, "update_purchase")

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req models.UpdatePurchaseRequest
	if !bindAndValidate(c, h.validator, logger, &req) {
		return
	}

	purchase, err := h.ledger.UpdatePurchase(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		respondError(c, logger, "Error actualizando la compra", err)
		return
	}
	respondSuccess(c, http.StatusOK, "Compra actualizada", purchase)
}

func (h *LedgerHandler) DeletePurchase(c *gin.Context) {
	logger := requestLogger(h.logger, c, "delete_purchase")

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if err := h.ledger.DeletePurchase(c.Request.Context(), actor, id); err != nil {
		respondError(c, logger, "Error eliminando la compra", err)
		return
	}

	logger.Info("🗑️ Compra eliminada", zap.String("purchase_id", id))
	respondSuccess(c, http.StatusOK, "Compra eliminada", gin.H{"id": id})
}

// ===== CONSUMOS =====

func (h *LedgerHandler) CreateExpenditure(c *gin.Context) {
	start := time.Now()
	logger := requestLogger(h.logger, c, "create_expenditure")

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req models.CreateExpenditureRequest
	if !bindAndValidate(c, h.validator, logger, &req) {
		return
	}
	req.ExpendedBy = actor.UserID

	result, err := h.ledger.CreateExpenditure(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, logger, "Error registrando el consumo", err)
		return
	}

	logger.Info("✅ Consumo registrado",
		zap.String("expenditure_id", result.Expenditure.ID),
		zap.String("asset_id", result.Asset.AssetID),
		zap.Int("closing_balance", result.Asset.ClosingBalance),
		zap.Duration("latency", time.Since(start)))

	respondSuccess(c, http.StatusCreated, "Consumo registrado correctamente", result)
}

func (h *LedgerHandler) GetExpenditure(c *gin.Context) {
	logger := requestLogger(h.logger, c, "get_expenditure")

	expenditure, err := h.ledger.GetExpenditure(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, "Error obteniendo el consumo", err)
		return
	}
	respondSuccess(c, http.StatusOK, "Consumo obtenido", expenditure)
}

// ===== ASIGNACIONES =====

func (h *LedgerHandler) CreateAssignment(c *gin.Context) {
	start := time.Now()
	logger := requestLogger(h.logger, c, "create_assignment")

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req models.CreateAssignmentRequest
	if !bindAndValidate(c, h.validator, logger, &req) {
		return
	}

	result, err := h.ledger.CreateAssignment(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, logger, "Error asignando el activo", err)
		return
	}

	logger.Info("✅ Activo asignado",
		zap.String("assignment_id", result.Assignment.ID),
		zap.String("personnel", result.Assignment.PersonnelName),
		zap.Int("closing_balance", result.Asset.ClosingBalance),
		zap.Duration("latency", time.Since(start)))

	respondSuccess(c, http.StatusCreated, "Activo asignado correctamente", result)
}

func (h *LedgerHandler) GetAssignment(c *gin.Context) {
	logger := requestLogger(h.logger, c, "get_assignment")

	assignment, err := h.ledger.GetAssignment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, "Error obteniendo la asignación", err)
		return
	}
	respondSuccess(c, http.StatusOK, "Asignación obtenida", assignment)
}

func (h *LedgerHandler) UpdateAssignment(c *gin.Context) {
	logger := requestLogger(h.logger, c, "update_assignment")

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req models.UpdateAssignmentRequest
	if !bindAndValidate(c, h.validator, logger, &req) {
		return
	}

	assignment, err := h.ledger.UpdateAssignment(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		respondError(c, logger, "Error actualizando la asignación", err)
		return
	}
	respondSuccess(c, http.StatusOK, "Asignación actualizada", assignment)
}

func (h *LedgerHandler) DeleteAssignment(c *gin.Context) {
	logger := requestLogger(h.logger, c, "delete_assignment")

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if err := h.ledger.DeleteAssignment(c.Request.Context(), actor, id); err != nil {
		respondError(c, logger, "Error eliminando la asignación", err)
		return
	}

	logger.Info("🗑️ Asignación eliminada", zap.String("assignment_id", id))
	respondSuccess(c, http.StatusOK, "Asignación eliminada", gin.H{"id": id})
}

// ===== TRANSFERENCIAS =====

func (h *LedgerHandler) CreateTransfer(c *gin.Context) {
	start := time.Now()
	logger := requestLogger(h.logger, c, "create_transfer")

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req models.CreateTransferRequest
	if !bindAndValidate(c, h.validator, logger, &req) {
		return
	}
	req.TransferredBy = actor.UserID

	result, err := h.ledger.CreateTransfer(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, logger, "Error creando la transferencia", err)
		return
	}

	logger.Info("🚚 Transferencia creada",
		zap.String("transfer_id", result.Transfer.ID),
		zap.String("from_base_id", result.Transfer.FromBaseID),
		zap.String("to_base_id", result.Transfer.ToBaseID),
		zap.Int("quantity", result.Transfer.Quantity),
		zap.Duration("latency", time.Since(start)))

	respondSuccess(c, http.StatusCreated, "Transferencia creada correctamente", result)
}

func (h *LedgerHandler) GetTransfer(c *gin.Context) {
	logger := requestLogger(h.logger, c, "get_transfer")

	transfer, err := h.ledger.GetTransfer(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, "Error obteniendo la transferencia", err)
		return
	}
	respondSuccess(c, http.StatusOK, "Transferencia obtenida", transfer)
}

func (h *LedgerHandler) UpdateTransferStatus(c *gin.Context) {
	logger := requestLogger(h.logger, c, "update_transfer_status")

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req models.UpdateTransferStatusRequest
	if !bindAndValidate(c, h.validator, logger, &req) {
		return
	}

	result, err := h.ledger.UpdateTransferStatus(c.Request.Context(), actor, c.Param("id"), req.Status)
	if err != nil {
		respondError(c, logger, "Error actualizando el estado de la transferencia", err)
		return
	}

	logger.Info("🔁 Estado de transferencia actualizado",
		zap.String("transfer_id", result.Transfer.ID),
		zap.String("status", string(result.Transfer.Status)))

	respondSuccess(c, http.StatusOK, "Estado de transferencia actualizado", result)
}
