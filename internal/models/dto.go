package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ===== REQUEST DTOs =====
// Las etiquetas validate se aplican en el borde HTTP; los servicios vuelven a
// validar para llamadas que no pasan por HTTP.

// CreateAssetRequest DTO para alta de activo
type CreateAssetRequest struct {
	AssetID   string          `json:"asset_id"`
	Name      string          `json:"name" validate:"required"`
	Type      AssetType       `json:"type" validate:"required,oneof=vehicle weapon ammunition equipment communication"`
	Quantity  int             `json:"quantity" validate:"gte=0"`
	BaseID    string          `json:"base_id" validate:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Status    AssetStatus     `json:"status" validate:"omitempty,oneof=available assigned expended transferred maintenance retired"`
}

// UpdateAssetDetailsRequest edición de campos descriptivos, nunca de cantidades
type UpdateAssetDetailsRequest struct {
	Name      *string          `json:"name" validate:"omitempty,min=1"`
	Type      *AssetType       `json:"type" validate:"omitempty,oneof=vehicle weapon ammunition equipment communication"`
	Status    *AssetStatus     `json:"status" validate:"omitempty,oneof=available assigned expended transferred maintenance retired"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// CorrectAssetBalanceRequest corrección administrativa de saldos
type CorrectAssetBalanceRequest struct {
	ClosingBalance *int   `json:"closing_balance" validate:"omitempty,gte=0"`
	Quantity       *int   `json:"quantity" validate:"omitempty,gte=0"`
	Reason         string `json:"reason" validate:"required"`
}

// CreatePurchaseRequest DTO para registrar una compra
type CreatePurchaseRequest struct {
	AssetID   string          `json:"asset_id" validate:"required"`
	BaseID    string          `json:"base_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// UpdatePurchaseRequest edición simple; no recalcula total_cost ni saldos
type UpdatePurchaseRequest struct {
	Status       *PurchaseStatus  `json:"status" validate:"omitempty,oneof=pending approved delivered"`
	Quantity     *int             `json:"quantity" validate:"omitempty,gt=0"`
	UnitPrice    *decimal.Decimal `json:"unit_price"`
	PurchaseDate *time.Time       `json:"purchase_date"`
}

// CreateExpenditureRequest DTO para registrar un consumo.
// Quantity se valida en el servicio, después de comprobar que el activo existe.
type CreateExpenditureRequest struct {
	AssetID    string `json:"asset_id" validate:"required"`
	Quantity   int    `json:"quantity"`
	ExpendedBy string `json:"-"` // Se obtiene del contexto de autenticación
	Reason     string `json:"reason" validate:"required"`
	Notes      string `json:"notes"`
}

// CreateAssignmentRequest DTO para asignar un activo a personal
type CreateAssignmentRequest struct {
	AssetID       string `json:"asset_id" validate:"required"`
	PersonnelName string `json:"personnel_name" validate:"required"`
	Quantity      int    `json:"quantity" validate:"required,gt=0"`
	BaseID        string `json:"base_id" validate:"required"`
}

// UpdateAssignmentRequest edición simple; no devuelve stock al activo
type UpdateAssignmentRequest struct {
	PersonnelName *string `json:"personnel_name" validate:"omitempty,min=1"`
	Quantity      *int    `json:"quantity" validate:"omitempty,gt=0"`
}

// CreateTransferRequest DTO para crear una transferencia entre bases
type CreateTransferRequest struct {
	AssetID       string `json:"asset_id" validate:"required"`
	FromBaseID    string `json:"from_base_id" validate:"required"`
	ToBaseID      string `json:"to_base_id" validate:"required"`
	Quantity      int    `json:"quantity" validate:"required,gt=0"`
	TransferredBy string `json:"-"` // Se obtiene del contexto de autenticación
	Notes         string `json:"notes"`
}

// UpdateTransferStatusRequest cambio de estado de una transferencia
type UpdateTransferStatusRequest struct {
	Status TransferStatus `json:"status" validate:"required,oneof=pending approved in-transit completed cancelled"`
}
