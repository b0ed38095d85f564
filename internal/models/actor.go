package models

type Role string

const (
	RoleAdmin            Role = "admin"
	RoleBaseCommander    Role = "base_commander"
	RoleLogisticsOfficer Role = "logistics_officer"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleBaseCommander, RoleLogisticsOfficer:
		return true
	}
	return false
}

// Actor usuario autenticado que ejecuta una operación. Se pasa explícitamente a
// cada servicio en lugar de leerse del request.
type Actor struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
	BaseID string `json:"base_id"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
