package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-transfer-api/internal/domain/entity"
	"github.com/jhoicas/stock-transfer-api/internal/domain/repository"
)

var _ repository.RefreshTokenRepository = (*RefreshTokenRepo)(nil)

// RefreshTokenRepo refresh tokens por hash SHA-256.
type RefreshTokenRepo struct {
	q Querier
}

// NewRefreshTokenRepository construye el adaptador.
func NewRefreshTokenRepository(q Querier) *RefreshTokenRepo {
	return &RefreshTokenRepo{q: q}
}

func (r *RefreshTokenRepo) Create(ctx context.Context, t *entity.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (token_hash, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := r.q.Exec(ctx, query, t.TokenHash, t.UserID, t.ExpiresAt, t.CreatedAt); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepo) Find(ctx context.Context, tokenHash string) (*entity.RefreshToken, error) {
	query := `
		SELECT token_hash, user_id, expires_at, created_at
		FROM refresh_tokens WHERE token_hash = $1 AND expires_at > now()`
	return scanRefreshToken(r.q.QueryRow(ctx, query, tokenHash))
}

// Rotate en una sola sentencia: de dos refresh concurrentes con el mismo token solo uno obtiene la fila,
// y el token nuevo existe si y solo si el viejo fue borrado.
func (r *RefreshTokenRepo) Rotate(ctx context.Context, tokenHash string, next *entity.RefreshToken) (*entity.RefreshToken, error) {
	query := `
		WITH consumed AS (
			DELETE FROM refresh_tokens
			WHERE token_hash = $1 AND user_id = $3 AND expires_at > now()
			RETURNING token_hash, user_id, expires_at, created_at
		), issued AS (
			INSERT INTO refresh_tokens (token_hash, user_id, expires_at, created_at)
			SELECT $2::text, user_id, expires_at, $4::timestamptz FROM consumed
		)
		SELECT token_hash, user_id, expires_at, created_at FROM consumed`
	old, err := scanRefreshToken(r.q.QueryRow(ctx, query, tokenHash, next.TokenHash, next.UserID, next.CreatedAt))
	if err != nil || old == nil {
		return old, err
	}
	next.ExpiresAt = old.ExpiresAt
	return old, nil
}

func (r *RefreshTokenRepo) Delete(ctx context.Context, tokenHash string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, tokenHash); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepo) DeleteExpiredForUser(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1 AND expires_at <= now()`, userID)
	if err != nil {
		return 0, fmt.Errorf("purge refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanRefreshToken(row pgx.Row) (*entity.RefreshToken, error) {
	var t entity.RefreshToken
	if err := row.Scan(&t.TokenHash, &t.UserID, &t.ExpiresAt, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}
	return &t, nil
}
