package repository

import (
	"context"

	"github.com/jhoicas/stock-transfer-api/internal/domain/entity"
)

// TransferRepository puerto de persistencia de los traslados (ledger de idempotencia).
type TransferRepository interface {
	// LockKey serializa, dentro de la transacción actual, los envíos con la misma clave.
	LockKey(ctx context.Context, idempotencyKey string) error
	// GetByKey devuelve nil, nil si la clave no fue vista.
	GetByKey(ctx context.Context, idempotencyKey string) (*entity.TransferRecord, error)
	// Create devuelve domain.ErrDuplicate si la clave ya existe.
	Create(ctx context.Context, record *entity.TransferRecord) error
	ListRecent(ctx context.Context, limit int) ([]*entity.TransferRecord, error)
}
