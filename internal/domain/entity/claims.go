package entity

import (
	"slices"
	"time"
)

// AccessClaims vista de solo lectura del access token presentado.
type AccessClaims struct {
	UserID    int64     `json:"id"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"exp"`
}

// HasRole indica si el rol de los claims está en roles.
func (c AccessClaims) HasRole(roles ...string) bool {
	return slices.Contains(roles, c.Role)
}
