package repository

import (
	"context"

	"github.com/jhoicas/stock-transfer-api/internal/domain/entity"
)

// AuditRepository append-only de AuditEntry.
type AuditRepository interface {
	Insert(ctx context.Context, entry *entity.AuditEntry) error
}
