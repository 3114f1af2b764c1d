package repository

import (
	"context"

	"github.com/jhoicas/stock-transfer-api/internal/domain/entity"
)

// StockRepository puerto de escritura del Stock Ledger. Solo se usa dentro de la
// transacción del traslado; GetForUpdate bloquea la fila hasta el commit o rollback.
type StockRepository interface {
	// GetForUpdate devuelve nil, nil si no existe la fila (producto, sede).
	GetForUpdate(ctx context.Context, productID, locationID int64) (*entity.StockLevel, error)
	Decrement(ctx context.Context, productID, locationID, qty int64) error
	// AddOrCreate suma qty a la fila destino o la crea con quantity = qty.
	// Devuelve domain.ErrNotFound si el producto o la sede no existen y
	// domain.ErrOutOfRange si la cantidad resultante desborda.
	AddOrCreate(ctx context.Context, productID, locationID, qty int64) error
}

// StockReader puerto de lectura del stock (listado y dashboard).
type StockReader interface {
	List(ctx context.Context, filter entity.StockFilter) ([]entity.StockRow, error)
	SummaryByLocation(ctx context.Context) ([]entity.LocationSummary, error)
}
