package models

import "time"

// Assignment representa la tabla assignments.
// Editar o eliminar una asignación no devuelve stock al activo.
type Assignment struct {
	ID            string    `json:"id" db:"id"`
	AssetID       string    `json:"asset_id" db:"asset_id"`
	PersonnelName string    `json:"personnel_name" db:"personnel_name"`
	Quantity      int       `json:"quantity" db:"quantity"`
	BaseID        string    `json:"base_id" db:"base_id"`
	AssignedBy    string    `json:"assigned_by" db:"assigned_by"`
	AssignedDate  time.Time `json:"assigned_date" db:"assigned_date"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

type AssignmentResult struct {
	Assignment *Assignment   `json:"assignment"`
	Asset      AssetBalances `json:"asset"`
}
