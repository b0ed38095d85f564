package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusApproved  PurchaseStatus = "approved"
	PurchaseStatusDelivered PurchaseStatus = "delivered"
)

func (s PurchaseStatus) IsValid() bool {
	switch s {
	case PurchaseStatusPending, PurchaseStatusApproved, PurchaseStatusDelivered:
		return true
	}
	return false
}

// Purchase representa la tabla purchases.
// TotalCost se fija al crear y no se recalcula en ediciones posteriores.
type Purchase struct {
	ID           string          `json:"id" db:"id"`
	AssetID      string          `json:"asset_id" db:"asset_id"`
	BaseID       string          `json:"base_id" db:"base_id"`
	Quantity     int             `json:"quantity" db:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price" db:"unit_price"`
	TotalCost    decimal.Decimal `json:"total_cost" db:"total_cost"`
	Status       PurchaseStatus  `json:"status" db:"status"`
	PurchaseDate time.Time       `json:"purchase_date" db:"purchase_date"`
	CreatedBy    string          `json:"created_by" db:"created_by"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}
