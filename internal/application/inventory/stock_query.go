package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-transfer-api/internal/domain/entity"
	"github.com/jhoicas/stock-transfer-api/internal/domain/repository"
)

// Límites del historial de traslados.
const (
	DefaultTransferHistoryLimit = 50
	MaxTransferHistoryLimit     = 500
)

// StockQueryUseCase lecturas del stock: listado, resumen por sede, historial y reporte PDF.
// No muta nada; es eventualmente consistente con el ledger.
type StockQueryUseCase struct {
	stockReader  repository.StockReader
	transferRepo repository.TransferRepository
	renderer     ReportRenderer
}

// NewStockQueryUseCase construye el caso de uso. renderer puede ser nil si no se expone el reporte.
func NewStockQueryUseCase(
	stockReader repository.StockReader,
	transferRepo repository.TransferRepository,
	renderer ReportRenderer,
) *StockQueryUseCase {
	return &StockQueryUseCase{
		stockReader:  stockReader,
		transferRepo: transferRepo,
		renderer:     renderer,
	}
}

// List devuelve el stock por (producto, sede) con filtros opcionales.
func (uc *StockQueryUseCase) List(ctx context.Context, filter entity.StockFilter) ([]entity.StockRow, error) {
	rows, err := uc.stockReader.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listar stock: %w", err)
	}
	if rows == nil {
		rows = []entity.StockRow{}
	}
	return rows, nil
}

// Summary totales por sede.
func (uc *StockQueryUseCase) Summary(ctx context.Context) ([]entity.LocationSummary, error) {
	summary, err := uc.stockReader.SummaryByLocation(ctx)
	if err != nil {
		return nil, fmt.Errorf("resumen de stock: %w", err)
	}
	if summary == nil {
		summary = []entity.LocationSummary{}
	}
	return summary, nil
}

// RecentTransfers últimos traslados; limit fuera de rango usa el valor por defecto o el máximo.
func (uc *StockQueryUseCase) RecentTransfers(ctx context.Context, limit int) ([]*entity.TransferRecord, error) {
	if limit <= 0 {
		limit = DefaultTransferHistoryLimit
	}
	if limit > MaxTransferHistoryLimit {
		limit = MaxTransferHistoryLimit
	}
	list, err := uc.transferRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("historial de traslados: %w", err)
	}
	if list == nil {
		list = []*entity.TransferRecord{}
	}
	return list, nil
}

// Report genera el PDF con el listado completo y el resumen por sede.
func (uc *StockQueryUseCase) Report(ctx context.Context) ([]byte, error) {
	if uc.renderer == nil {
		return nil, fmt.Errorf("reporte PDF no configurado")
	}
	rows, err := uc.List(ctx, entity.StockFilter{})
	if err != nil {
		return nil, err
	}
	summary, err := uc.Summary(ctx)
	if err != nil {
		return nil, err
	}
	return uc.renderer.RenderStockReport(rows, summary)
}
