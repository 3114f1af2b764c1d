package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-transfer-api/internal/domain"
	"github.com/jhoicas/stock-transfer-api/internal/domain/entity"
	"github.com/jhoicas/stock-transfer-api/internal/domain/repository"
)

var _ repository.TransferRepository = (*TransferRepo)(nil)

// TransferRepo implementación de TransferRepository sobre PostgreSQL (usable con pool o tx).
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador de traslados.
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

// LockKey toma un advisory lock de transacción sobre el hash de la clave; se libera en Commit/Rollback.
func (r *TransferRepo) LockKey(ctx context.Context, idempotencyKey string) error {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, idempotencyKey); err != nil {
		return fmt.Errorf("lock idempotency key: %w", err)
	}
	return nil
}

// GetByKey busca el traslado por clave de idempotencia; nil, nil si no existe.
func (r *TransferRepo) GetByKey(ctx context.Context, idempotencyKey string) (*entity.TransferRecord, error) {
	query := `
		SELECT id, product_id, from_location_id, to_location_id, quantity, idempotency_key,
		       COALESCE(created_by, 0), created_at
		FROM stock_transfers WHERE idempotency_key = $1`
	t, err := scanTransfer(r.q.QueryRow(ctx, query, idempotencyKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transfer by key: %w", err)
	}
	return t, nil
}

// Create inserta el traslado; devuelve domain.ErrDuplicate si la clave ya existe.
func (r *TransferRepo) Create(ctx context.Context, t *entity.TransferRecord) error {
	query := `
		INSERT INTO stock_transfers (product_id, from_location_id, to_location_id, quantity, idempotency_key, created_by)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6::bigint, 0))
		RETURNING id, created_at`
	err := r.q.QueryRow(ctx, query,
		t.ProductID, t.FromLocationID, t.ToLocationID, t.Quantity, t.IdempotencyKey, t.CreatedBy,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert transfer: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// ListRecent últimos traslados, más recientes primero.
func (r *TransferRepo) ListRecent(ctx context.Context, limit int) ([]*entity.TransferRecord, error) {
	query := `
		SELECT id, product_id, from_location_id, to_location_id, quantity, idempotency_key,
		       COALESCE(created_by, 0), created_at
		FROM stock_transfers ORDER BY created_at DESC, id DESC LIMIT $1`
	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var list []*entity.TransferRecord
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func scanTransfer(row pgx.Row) (*entity.TransferRecord, error) {
	var t entity.TransferRecord
	if err := row.Scan(
		&t.ID, &t.ProductID, &t.FromLocationID, &t.ToLocationID, &t.Quantity, &t.IdempotencyKey,
		&t.CreatedBy, &t.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}
