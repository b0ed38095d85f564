package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetType categoría del activo
type AssetType string

const (
	AssetTypeVehicle       AssetType = "vehicle"
	AssetTypeWeapon        AssetType = "weapon"
	AssetTypeAmmunition    AssetType = "ammunition"
	AssetTypeEquipment     AssetType = "equipment"
	AssetTypeCommunication AssetType = "communication"
)

func (t AssetType) IsValid() bool {
	switch t {
	case AssetTypeVehicle, AssetTypeWeapon, AssetTypeAmmunition, AssetTypeEquipment, AssetTypeCommunication:
		return true
	}
	return false
}

// AssetStatus es informativo, no participa en el cálculo de saldos
type AssetStatus string

const (
	AssetStatusAvailable   AssetStatus = "available"
	AssetStatusAssigned    AssetStatus = "assigned"
	AssetStatusExpended    AssetStatus = "expended"
	AssetStatusTransferred AssetStatus = "transferred"
	AssetStatusMaintenance AssetStatus = "maintenance"
	AssetStatusRetired     AssetStatus = "retired"
)

func (s AssetStatus) IsValid() bool {
	switch s {
	case AssetStatusAvailable, AssetStatusAssigned, AssetStatusExpended,
		AssetStatusTransferred, AssetStatusMaintenance, AssetStatusRetired:
		return true
	}
	return false
}

// Asset representa la tabla assets: el saldo actual de un activo en una base.
//
// Quantity lo mueven las transferencias; ClosingBalance lo mueven asignaciones y
// consumos. NetMovement es un contador acumulado independiente del cálculo de
// movimiento neto por base. Version se incrementa en cada escritura y sirve de
// guarda para las actualizaciones condicionales.
type Asset struct {
	AssetID        string          `json:"asset_id" db:"asset_id"`
	Name           string          `json:"name" db:"name"`
	Type           AssetType       `json:"type" db:"type"`
	Quantity       int             `json:"quantity" db:"quantity"`
	OpeningBalance int             `json:"opening_balance" db:"opening_balance"`
	ClosingBalance int             `json:"closing_balance" db:"closing_balance"`
	NetMovement    int             `json:"net_movement" db:"net_movement"`
	UnitPrice      decimal.Decimal `json:"unit_price" db:"unit_price"`
	BaseID         string          `json:"base_id" db:"base_id"`
	Status         AssetStatus     `json:"status" db:"status"`
	Version        int             `json:"version" db:"version"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// Clone devuelve una copia para snapshots de auditoría
func (a *Asset) Clone() *Asset {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// AssetBalances resumen de saldos devuelto por las operaciones del libro
type AssetBalances struct {
	AssetID        string `json:"asset_id"`
	Quantity       int    `json:"quantity"`
	ClosingBalance int    `json:"closing_balance"`
	NetMovement    int    `json:"net_movement"`
	BaseID         string `json:"base_id"`
}

func (a *Asset) Balances() AssetBalances {
	return AssetBalances{
		AssetID:        a.AssetID,
		Quantity:       a.Quantity,
		ClosingBalance: a.ClosingBalance,
		NetMovement:    a.NetMovement,
		BaseID:         a.BaseID,
	}
}
