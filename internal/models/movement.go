package models

import "time"

// NetMovement proyección de solo lectura sobre compras y transferencias de una base
type NetMovement struct {
	BaseID       string `json:"base_id"`
	Purchases    int    `json:"purchases"`
	TransfersIn  int    `json:"transfers_in"`
	TransfersOut int    `json:"transfers_out"`
	NetMovement  int    `json:"net_movement"`
}

// MovementRecord compra o transferencia que entra en el movimiento neto.
// Las compras no tienen base de origen.
type MovementRecord struct {
	ID         string    `json:"id"`
	AssetID    string    `json:"asset_id"`
	AssetName  string    `json:"asset_name"`
	AssetType  AssetType `json:"asset_type"`
	FromBaseID string    `json:"from_base_id,omitempty"`
	ToBaseID   string    `json:"to_base_id"`
	Quantity   int       `json:"quantity"`
	Status     string    `json:"status"`
	Date       time.Time `json:"date"`
}

// NetMovementDetail totales del movimiento neto junto con los registros que los componen
type NetMovementDetail struct {
	NetMovement
	StartDate           *time.Time       `json:"start_date,omitempty"`
	EndDate             *time.Time       `json:"end_date,omitempty"`
	PurchaseRecords     []MovementRecord `json:"purchase_records"`
	TransfersInRecords  []MovementRecord `json:"transfers_in_records"`
	TransfersOutRecords []MovementRecord `json:"transfers_out_records"`
}

// MovementFilter filtro opcional por base y rango de fechas
type MovementFilter struct {
	BaseID    string
	StartDate *time.Time
	EndDate   *time.Time
}

type MovementInOut struct {
	In  int `json:"in"`
	Out int `json:"out"`
}

// DashboardMetrics contadores del dashboard
type DashboardMetrics struct {
	BaseID            string         `json:"base_id,omitempty"`
	TotalAssets       int            `json:"total_assets"`
	TotalPurchases    int            `json:"total_purchases"`
	ActiveTransfers   int            `json:"active_transfers"`
	AssignedAssets    int            `json:"assigned_assets"`
	TotalExpenditures int            `json:"total_expenditures"`
	NetMovement       *MovementInOut `json:"net_movement,omitempty"`
	GeneratedAt       time.Time      `json:"generated_at"`
}
