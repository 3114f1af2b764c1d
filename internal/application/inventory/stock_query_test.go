package inventory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-transfer-api/internal/application/inventory"
	"github.com/jhoicas/stock-transfer-api/internal/domain/entity"
)

type fakeReader struct {
	rows    []entity.StockRow
	summary []entity.LocationSummary
	err     error
}

func (f *fakeReader) List(context.Context, entity.StockFilter) ([]entity.StockRow, error) {
	return f.rows, f.err
}

func (f *fakeReader) SummaryByLocation(context.Context) ([]entity.LocationSummary, error) {
	return f.summary, f.err
}

type fakeHistory struct {
	limit int
	list  []*entity.TransferRecord
}

func (f *fakeHistory) LockKey(context.Context, string) error { return nil }
func (f *fakeHistory) GetByKey(context.Context, string) (*entity.TransferRecord, error) {
	return nil, nil
}
func (f *fakeHistory) Create(context.Context, *entity.TransferRecord) error { return nil }
func (f *fakeHistory) ListRecent(_ context.Context, limit int) ([]*entity.TransferRecord, error) {
	f.limit = limit
	return f.list, nil
}

type fakeRenderer struct {
	rows    int
	summary int
}

func (f *fakeRenderer) RenderStockReport(rows []entity.StockRow, summary []entity.LocationSummary) ([]byte, error) {
	f.rows, f.summary = len(rows), len(summary)
	return []byte("%PDF"), nil
}

func TestStockQuery_ListVacioNoEsNil(t *testing.T) {
	uc := inventory.NewStockQueryUseCase(&fakeReader{}, &fakeHistory{}, nil)

	rows, err := uc.List(context.Background(), entity.StockFilter{})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	summary, err := uc.Summary(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, summary)
}

func TestStockQuery_ErrorDelRepositorio(t *testing.T) {
	boom := errors.New("conexión perdida")
	uc := inventory.NewStockQueryUseCase(&fakeReader{err: boom}, &fakeHistory{}, nil)

	_, err := uc.List(context.Background(), entity.StockFilter{})
	assert.ErrorIs(t, err, boom)
}

func TestStockQuery_LimitesDelHistorial(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, inventory.DefaultTransferHistoryLimit},
		{-3, inventory.DefaultTransferHistoryLimit},
		{20, 20},
		{10000, inventory.MaxTransferHistoryLimit},
	}
	for _, tt := range tests {
		h := &fakeHistory{}
		uc := inventory.NewStockQueryUseCase(&fakeReader{}, h, nil)
		list, err := uc.RecentTransfers(context.Background(), tt.in)
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Equal(t, tt.want, h.limit, "limit %d", tt.in)
	}
}

func TestStockQuery_Report(t *testing.T) {
	reader := &fakeReader{
		rows: []entity.StockRow{
			{ProductID: 1, LocationID: 1, Quantity: 3, UnitCost: decimal.NewFromInt(10)},
			{ProductID: 2, LocationID: 1, Quantity: 1, UnitCost: decimal.NewFromInt(5)},
		},
		summary: []entity.LocationSummary{{LocationID: 1, Units: 4}},
	}
	r := &fakeRenderer{}
	uc := inventory.NewStockQueryUseCase(reader, &fakeHistory{}, r)

	pdf, err := uc.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), pdf)
	assert.Equal(t, 2, r.rows)
	assert.Equal(t, 1, r.summary)
}

func TestStockQuery_ReportSinRenderer(t *testing.T) {
	uc := inventory.NewStockQueryUseCase(&fakeReader{}, &fakeHistory{}, nil)
	_, err := uc.Report(context.Background())
	assert.Error(t, err)
}
