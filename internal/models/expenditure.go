package models

import "time"

// Expenditure representa la tabla expenditures
type Expenditure struct {
	ID              string    `json:"id" db:"id"`
	AssetID         string    `json:"asset_id" db:"asset_id"`
	BaseID          string    `json:"base_id" db:"base_id"`
	Quantity        int       `json:"quantity" db:"quantity"`
	ExpendedBy      string    `json:"expended_by" db:"expended_by"`
	Reason          string    `json:"reason" db:"reason"`
	Notes           string    `json:"notes,omitempty" db:"notes"`
	ExpenditureDate time.Time `json:"expenditure_date" db:"expenditure_date"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// ExpenditureResult consumo registrado y saldos actualizados del activo
type ExpenditureResult struct {
	Expenditure *Expenditure  `json:"expenditure"`
	Asset       AssetBalances `json:"asset"`
}
