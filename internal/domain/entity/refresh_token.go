package entity

import "time"

// RefreshToken registro del servidor; solo se guarda el hash SHA-256 del token.
type RefreshToken struct {
	TokenHash string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired indica si el token ya no es utilizable en now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
