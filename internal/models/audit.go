package models

import (
	"encoding/json"
	"time"
)

type AuditAction string

const (
	AuditActionPurchase    AuditAction = "PURCHASE"
	AuditActionExpenditure AuditAction = "EXPENDITURE"
	AuditActionAssignment  AuditAction = "ASSIGNMENT"
	AuditActionTransfer    AuditAction = "TRANSFER"
	AuditActionUpdate      AuditAction = "UPDATE"
	AuditActionDelete      AuditAction = "DELETE"
	AuditActionAssetCreate AuditAction = "ASSET_CREATE"
	AuditActionAssetUpdate AuditAction = "ASSET_UPDATE"
)

type ResourceType string

const (
	ResourceAsset       ResourceType = "asset"
	ResourcePurchase    ResourceType = "purchase"
	ResourceTransfer    ResourceType = "transfer"
	ResourceAssignment  ResourceType = "assignment"
	ResourceExpenditure ResourceType = "expenditure"
)

func (r ResourceType) IsValid() bool {
	switch r {
	case ResourceAsset, ResourcePurchase, ResourceTransfer, ResourceAssignment, ResourceExpenditure:
		return true
	}
	return false
}

// AuditLog entrada append-only de la bitácora. OldValues y NewValues guardan el
// snapshot JSON tomado en el momento de la operación.
type AuditLog struct {
	ID           string          `json:"id" db:"id"`
	UserID       string          `json:"user_id" db:"user_id"`
	Action       AuditAction     `json:"action" db:"action"`
	ResourceType ResourceType    `json:"resource_type" db:"resource_type"`
	ResourceID   string          `json:"resource_id" db:"resource_id"`
	ResourceName string          `json:"resource_name,omitempty" db:"resource_name"`
	Details      string          `json:"details,omitempty" db:"details"`
	OldValues    json.RawMessage `json:"old_values,omitempty" db:"old_values"`
	NewValues    json.RawMessage `json:"new_values,omitempty" db:"new_values"`
	BaseID       string          `json:"base_id,omitempty" db:"base_id"`
	Timestamp    time.Time       `json:"timestamp" db:"timestamp"`
}
