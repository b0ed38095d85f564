package models

import "time"

type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusApproved  TransferStatus = "approved"
	TransferStatusInTransit TransferStatus = "in-transit"
	TransferStatusCompleted TransferStatus = "completed"
	TransferStatusCancelled TransferStatus = "cancelled"
)

func (s TransferStatus) IsValid() bool {
	switch s {
	case TransferStatusPending, TransferStatusApproved, TransferStatusInTransit,
		TransferStatusCompleted, TransferStatusCancelled:
		return true
	}
	return false
}

// Transfer representa la tabla transfers
type Transfer struct {
	ID            string         `json:"id" db:"id"`
	AssetID       string         `json:"asset_id" db:"asset_id"`
	FromBaseID    string         `json:"from_base_id" db:"from_base_id"`
	ToBaseID      string         `json:"to_base_id" db:"to_base_id"`
	Quantity      int            `json:"quantity" db:"quantity"`
	TransferredBy string         `json:"transferred_by" db:"transferred_by"`
	Status        TransferStatus `json:"status" db:"status"`
	Notes         string         `json:"notes,omitempty" db:"notes"`
	TransferDate  time.Time      `json:"transfer_date" db:"transfer_date"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// TransferResult transferencia junto con el saldo resultante del activo.
// Asset es nil cuando el cambio de estado no movió saldo.
type TransferResult struct {
	Transfer *Transfer      `json:"transfer"`
	Asset    *AssetBalances `json:"asset,omitempty"`
}
