package entity

import "time"

// Roles válidos para User.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

// Estados de User.
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// TransferRoles roles autorizados a mover stock entre sedes.
var TransferRoles = []string{RoleAdmin, RoleManager}

// ValidRole indica si role es uno de los roles conocidos.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleStaff:
		return true
	}
	return false
}

// User representa un usuario del sistema (Credential Store).
type User struct {
	ID           int64
	Email        string
	PasswordHash string // bcrypt hash, nunca plano
	Role         string // admin, manager, staff
	Status       string // active, inactive
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active indica si el usuario puede autenticarse.
func (u *User) Active() bool {
	return u.Status == UserStatusActive
}
