package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-transfer-api/internal/application/auth"
	"github.com/jhoicas/stock-transfer-api/internal/application/dto"
	"github.com/jhoicas/stock-transfer-api/internal/application/inventory"
	"github.com/jhoicas/stock-transfer-api/internal/domain"
	"github.com/jhoicas/stock-transfer-api/internal/domain/entity"
	apphttp "github.com/jhoicas/stock-transfer-api/internal/interfaces/http"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes
// ──────────────────────────────────────────────────────────────────────────────

type fakeTransfers struct {
	mu    sync.Mutex
	calls []inventory.TransferCommand
	res   *inventory.TransferResult
	err   error
}

func (f *fakeTransfers) Transfer(_ context.Context, cmd inventory.TransferCommand) (*inventory.TransferResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd)
	if f.err != nil {
		return nil, f.err
	}
	if f.res != nil {
		return f.res, nil
	}
	return &inventory.TransferResult{Accepted: true}, nil
}

func (f *fakeTransfers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeQueries struct {
	filter    entity.StockFilter
	limit     int
	rows      []entity.StockRow
	transfers []*entity.TransferRecord
	pdf       []byte
	err       error
}

func (f *fakeQueries) List(_ context.Context, filter entity.StockFilter) ([]entity.StockRow, error) {
	f.filter = filter
	return f.rows, f.err
}

func (f *fakeQueries) Summary(context.Context) ([]entity.LocationSummary, error) {
	return []entity.LocationSummary{{LocationID: 1, LocationName: "Bodega", Products: 2, Units: 30, Value: decimal.NewFromInt(300)}}, f.err
}

func (f *fakeQueries) RecentTransfers(_ context.Context, limit int) ([]*entity.TransferRecord, error) {
	f.limit = limit
	return f.transfers, f.err
}

func (f *fakeQueries) Report(context.Context) ([]byte, error) {
	return f.pdf, f.err
}

type noopAuth struct{}

func (noopAuth) Login(context.Context, dto.LoginRequest, entity.RequestOrigin) (*auth.TokenPair, error) {
	return nil, domain.NewAuthError(domain.AuthInvalidCredentials)
}

func (noopAuth) Refresh(context.Context, string) (*auth.TokenPair, error) {
	return nil, domain.NewAuthError(domain.AuthInvalidRefresh)
}

func (noopAuth) Logout(context.Context, string, entity.RequestOrigin) error { return nil }

// buildStockApp arma la app completa (server + router) con fakes.
func buildStockApp(tr *fakeTransfers, q *fakeQueries, ping func(context.Context) error) *fiber.App {
	log := zerolog.Nop()
	app := apphttp.NewServer(apphttp.ServerConfig{AppName: "test"}, log)
	apphttp.Router(app, apphttp.RouterDeps{
		Gate:      auth.NewGate(testJWTSecret),
		AuthUC:    noopAuth{},
		Transfers: tr,
		Queries:   q,
		Cookie:    apphttp.DefaultRefreshCookie(false),
		Ping:      ping,
		OpenAPI:   func() string { return `{"swagger":"2.0"}` },
		Log:       log,
	})
	return app
}

func transferRequest(t *testing.T, token, key, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stock/transfer", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	if key != "" {
		req.Header.Set(apphttp.HeaderIdempotencyKey, key)
	}
	return req
}

func decodeError(t *testing.T, resp *http.Response) dto.ErrorResponse {
	t.Helper()
	var body dto.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

const validTransferBody = `{"product_id":1,"from_location_id":1,"to_location_id":2,"qty":5}`

// ──────────────────────────────────────────────────────────────────────────────
// POST /api/v1/stock/transfer
// ──────────────────────────────────────────────────────────────────────────────

func TestTransfer_Aceptado_Retorna201(t *testing.T) {
	tr := &fakeTransfers{}
	app := buildStockApp(tr, &fakeQueries{}, nil)

	req := transferRequest(t, tokenForRole(t, "manager"), "  k-1  ", validTransferBody)
	req.Header.Set("User-Agent", "test-agent")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var body dto.MessageResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Transfer completed", body.Message)

	require.Equal(t, 1, tr.count())
	cmd := tr.calls[0]
	assert.Equal(t, int64(1), cmd.ProductID)
	assert.Equal(t, int64(1), cmd.FromLocationID)
	assert.Equal(t, int64(2), cmd.ToLocationID)
	assert.Equal(t, int64(5), cmd.Quantity)
	assert.Equal(t, "k-1", cmd.IdempotencyKey, "la clave se recorta")
	assert.Equal(t, testUserID, cmd.Actor.UserID)
	assert.Equal(t, "manager", cmd.Actor.Role)
	assert.Equal(t, "test-agent", cmd.Origin.UserAgent)
}

func TestTransfer_ComandoConservaValoresTrasResponder(t *testing.T) {
	tr := &fakeTransfers{}
	app := buildStockApp(tr, &fakeQueries{}, nil)
	token := tokenForRole(t, "manager")

	first := transferRequest(t, token, "key-AAAAAAAAAAAAAAAA", validTransferBody)
	first.Header.Set("User-Agent", "agent-one-1111111111")
	resp, err := app.Test(first, -1)
	require.NoError(t, err)
	resp.Body.Close()

	for i := 0; i < 5; i++ {
		req := transferRequest(t, token, "key-BBBBBBBBBBBBBBBB", validTransferBody)
		req.Header.Set("User-Agent", "agent-two-2222222222")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		resp.Body.Close()
	}

	require.Equal(t, 6, tr.count())
	// El comando llega a la auditoría asíncrona; no debe ver los datos de peticiones posteriores.
	assert.Equal(t, "key-AAAAAAAAAAAAAAAA", tr.calls[0].IdempotencyKey)
	assert.Equal(t, "agent-one-1111111111", tr.calls[0].Origin.UserAgent)
}

func TestTransfer_YaProcesado_Retorna200(t *testing.T) {
	tr := &fakeTransfers{res: &inventory.TransferResult{AlreadyProcessed: true}}
	app := buildStockApp(tr, &fakeQueries{}, nil)

	resp, err := app.Test(transferRequest(t, tokenForRole(t, "admin"), "k-1", validTransferBody), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body dto.MessageResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Transfer already processed", body.Message)
}

func TestTransfer_SinIdempotencyKey_Retorna400(t *testing.T) {
	tr := &fakeTransfers{}
	app := buildStockApp(tr, &fakeQueries{}, nil)

	resp, err := app.Test(transferRequest(t, tokenForRole(t, "admin"), "", validTransferBody), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "MISSING_IDEMPOTENCY_KEY", decodeError(t, resp).Code)
	assert.Zero(t, tr.count(), "no debe llegar al caso de uso")
}

func TestTransfer_CuerpoInvalido_Retorna400(t *testing.T) {
	tr := &fakeTransfers{}
	app := buildStockApp(tr, &fakeQueries{}, nil)

	resp, err := app.Test(transferRequest(t, tokenForRole(t, "admin"), "k-1", `{"product_id":1,"qty":"cinco"}`), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_BODY", decodeError(t, resp).Code)
	assert.Zero(t, tr.count())
}

func TestTransfer_MapeoDeErrores(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"validación", domain.NewValidationError("qty", "debe ser mayor que 0"), http.StatusBadRequest, "VALIDATION"},
		{"stock insuficiente", domain.ErrInsufficientStock, http.StatusConflict, "INSUFFICIENT_STOCK"},
		{"persistencia", domain.NewPersistenceError("commit", context.DeadlineExceeded), http.StatusInternalServerError, "PERSISTENCE"},
		{"desconocido", assert.AnError, http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := buildStockApp(&fakeTransfers{err: tt.err}, &fakeQueries{}, nil)
			resp, err := app.Test(transferRequest(t, tokenForRole(t, "admin"), "k-1", validTransferBody), -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantCode, resp.StatusCode)
			body := decodeError(t, resp)
			assert.Equal(t, tt.wantBody, body.Code)
			assert.NotContains(t, body.Message, "deadline", "no se exponen detalles internos")
		})
	}
}

func TestTransfer_StaffBloqueado_NoLlegaAlCasoDeUso(t *testing.T) {
	tr := &fakeTransfers{}
	app := buildStockApp(tr, &fakeQueries{}, nil)

	resp, err := app.Test(transferRequest(t, tokenForRole(t, "staff"), "k-1", validTransferBody), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", decodeError(t, resp).Code)
	assert.Zero(t, tr.count())
}

func TestTransfer_SinToken_Retorna401(t *testing.T) {
	tr := &fakeTransfers{}
	app := buildStockApp(tr, &fakeQueries{}, nil)

	resp, err := app.Test(transferRequest(t, "", "k-1", validTransferBody), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "MISSING_TOKEN", decodeError(t, resp).Code)
	assert.Zero(t, tr.count())
}

// ──────────────────────────────────────────────────────────────────────────────
// Consultas
// ──────────────────────────────────────────────────────────────────────────────

func TestList_StaffPuedeConsultar_ConFiltros(t *testing.T) {
	q := &fakeQueries{rows: []entity.StockRow{{ProductID: 3, LocationID: 2, Quantity: 7}}}
	app := buildStockApp(&fakeTransfers{}, q, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock?product_id=3&location_id=2", nil)
	req.Header.Set("Authorization", tokenForRole(t, "staff"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, entity.StockFilter{ProductID: 3, LocationID: 2}, q.filter)

	var rows []entity.StockRow
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, int64(7), rows[0].Quantity)
}

func TestList_FiltroInvalido_Retorna400(t *testing.T) {
	app := buildStockApp(&fakeTransfers{}, &fakeQueries{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock?product_id=abc", nil)
	req.Header.Set("Authorization", tokenForRole(t, "staff"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", decodeError(t, resp).Code)
}

func TestTransfers_HistorialParaManager(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	q := &fakeQueries{transfers: []*entity.TransferRecord{
		{ID: 9, ProductID: 1, FromLocationID: 1, ToLocationID: 2, Quantity: 4, IdempotencyKey: "k-9", CreatedBy: testUserID, CreatedAt: now},
	}}
	app := buildStockApp(&fakeTransfers{}, q, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock/transfers?limit=10", nil)
	req.Header.Set("Authorization", tokenForRole(t, "manager"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 10, q.limit)

	var out []dto.TransferRecordResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, 1)
	assert.Equal(t, int64(4), out[0].Qty)
	assert.Equal(t, "k-9", out[0].IdempotencyKey)
}

func TestReport_DevuelvePDF(t *testing.T) {
	q := &fakeQueries{pdf: []byte("%PDF-1.4 fake")}
	app := buildStockApp(&fakeTransfers{}, q, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock/report.pdf", nil)
	req.Header.Set("Authorization", tokenForRole(t, "admin"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "stock-report.pdf")
}

func TestReport_StaffBloqueado(t *testing.T) {
	app := buildStockApp(&fakeTransfers{}, &fakeQueries{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock/report.pdf", nil)
	req.Header.Set("Authorization", tokenForRole(t, "staff"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Health y OpenAPI
// ──────────────────────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	ok := buildStockApp(&fakeTransfers{}, &fakeQueries{}, func(context.Context) error { return nil })
	resp, err := ok.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	down := buildStockApp(&fakeTransfers{}, &fakeQueries{}, func(context.Context) error { return assert.AnError })
	resp, err = down.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "DB_UNAVAILABLE", decodeError(t, resp).Code)
}

func TestOpenAPI_Publico(t *testing.T) {
	app := buildStockApp(&fakeTransfers{}, &fakeQueries{}, nil)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/openapi.json", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, bodyString(t, resp), `"swagger":"2.0"`)
}

func TestRutaInexistente_Retorna404JSON(t *testing.T) {
	app := buildStockApp(&fakeTransfers{}, &fakeQueries{}, nil)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/nada", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Code)
}
