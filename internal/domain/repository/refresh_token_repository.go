package repository

import (
	"context"

	"github.com/jhoicas/stock-transfer-api/internal/domain/entity"
)

// RefreshTokenRepository puerto de los refresh tokens; solo el Token Issuer lo muta.
// Find y Rotate ignoran registros expirados y devuelven nil, nil.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *entity.RefreshToken) error
	Find(ctx context.Context, tokenHash string) (*entity.RefreshToken, error)
	// Rotate borra el registro de tokenHash (si pertenece a next.UserID) e inserta next con la
	// expiración del borrado, de forma atómica. Devuelve el registro borrado.
	Rotate(ctx context.Context, tokenHash string, next *entity.RefreshToken) (*entity.RefreshToken, error)
	// Delete es idempotente: borrar algo inexistente no es error.
	Delete(ctx context.Context, tokenHash string) error
	DeleteExpiredForUser(ctx context.Context, userID int64) (int64, error)
}
