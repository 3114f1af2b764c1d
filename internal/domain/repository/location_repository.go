package repository

import (
	"context"

	"github.com/jhoicas/stock-transfer-api/internal/domain/entity"
)

// LocationRepository define el puerto de persistencia para Location.
type LocationRepository interface {
	// Create asigna ID y CreatedAt; domain.ErrDuplicate si el nombre ya existe.
	Create(ctx context.Context, location *entity.Location) error
	List(ctx context.Context) ([]*entity.Location, error)
}
