package inventory

import (
	"context"

	"github.com/jhoicas/stock-transfer-api/internal/domain/entity"
	"github.com/jhoicas/stock-transfer-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback; si no, Commit. Es la única unidad de trabajo del traslado.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		stockRepo repository.StockRepository,
		transferRepo repository.TransferRepository,
	) error) error
}

// AuditRecorder destino fire-and-forget de las entradas de auditoría.
type AuditRecorder interface {
	Record(entry *entity.AuditEntry)
}

// ReportRenderer genera el reporte PDF del stock.
type ReportRenderer interface {
	RenderStockReport(rows []entity.StockRow, summary []entity.LocationSummary) ([]byte, error)
}
