package handlers

import (
	"net/http"

	"asset-ledger/internal/models"
	"asset-ledger/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// AssetHandler alta, consulta y correcciones de activos
type AssetHandler struct {
	assets    services.AssetService
	validator *validator.Validate
	logger    *zap.Logger
}

func NewAssetHandler(assets services.AssetService, logger *zap.Logger) *AssetHandler {
	return &AssetHandler{
		assets:    assets,
		validator: newValidator(),
		logger:    logger,
	}
}

func (h *AssetHandler) CreateAsset(c *gin.Context) {
	logger := requestLogger(h.logger, c, "create_asset")

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req models.CreateAssetRequest
	if !bindAndValidate(c, h.validator, logger, &req) {
		return
	}

	asset, err := h.assets.CreateAsset(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, logger, "Error creando el activo", err)
		return
	}

	logger.Info("✅ Activo creado",
		zap.String("asset_id", asset.AssetID),
		zap.String("base_id", asset.BaseID),
		zap.Int("quantity", asset.Quantity))

	respondSuccess(c, http.StatusCreated, "Activo creado correctamente", asset)
}

func (h *AssetHandler) GetAsset(c *gin.Context) {
	logger := requestLogger(h.logger, c, "get_asset")

	asset, err := h.assets.GetAsset(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, "Error obteniendo el activo", err)
		return
	}
	respondSuccess(c, http.StatusOK, "Activo obtenido", asset)
}

// UpdateAssetDetails edita nombre, tipo, estado o precio; nunca cantidades
func (h *AssetHandler) UpdateAssetDetails(c *gin.Context) {
	logger := requestLogger(h.logger, c, "update_asset_details")

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req models.UpdateAssetDetailsRequest
	if !bindAndValidate(c, h.validator, logger, &req) {
		return
	}

	asset, err := h.assets.UpdateAssetDetails(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		respondError(c, logger, "Error actualizando el activo", err)
		return
	}
	respondSuccess(c, http.StatusOK, "Activo actualizado", asset)
}

// CorrectAssetBalance corrección administrativa de saldos (solo admin)
func (h *AssetHandler) CorrectAssetBalance(c *gin.Context) {
	logger := requestLogger(h.logger, c, "correct_asset_balance")

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req models.CorrectAssetBalanceRequest
	if !bindAndValidate(c, h.validator, logger, &req) {
		return
	}

	asset, err := h.assets.CorrectAssetBalance(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		respondError(c, logger, "Error corrigiendo el saldo del activo", err)
		return
	}

	logger.Info("🛠️ Saldo corregido",
		zap.String("asset_id", asset.AssetID),
		zap.String("user_id", actor.UserID),
		zap.Int("closing_balance", asset.ClosingBalance),
		zap.Int("quantity", asset.Quantity),
		zap.String("reason", req.Reason))

	respondSuccess(c, http.StatusOK, "Saldo corregido", asset)
}
