package http

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-transfer-api/internal/application/dto"
	"github.com/jhoicas/stock-transfer-api/internal/application/inventory"
	"github.com/jhoicas/stock-transfer-api/internal/domain"
	"github.com/jhoicas/stock-transfer-api/internal/domain/entity"
)

// HeaderIdempotencyKey header obligatorio de POST /stock/transfer.
const HeaderIdempotencyKey = "Idempotency-Key"

// TransferService lo implementa inventory.TransferUseCase.
type TransferService interface {
	Transfer(ctx context.Context, cmd inventory.TransferCommand) (*inventory.TransferResult, error)
}

// StockQueries lo implementa inventory.StockQueryUseCase.
type StockQueries interface {
	List(ctx context.Context, filter entity.StockFilter) ([]entity.StockRow, error)
	Summary(ctx context.Context) ([]entity.LocationSummary, error)
	RecentTransfers(ctx context.Context, limit int) ([]*entity.TransferRecord, error)
	Report(ctx context.Context) ([]byte, error)
}

// StockHandler maneja traslados y consultas de stock (protegido).
type StockHandler struct {
	transfers TransferService
	queries   StockQueries
	log       zerolog.Logger
}

// NewStockHandler construye el handler.
func NewStockHandler(transfers TransferService, queries StockQueries, log zerolog.Logger) *StockHandler {
	return &StockHandler{transfers: transfers, queries: queries, log: log}
}

// Transfer godoc
// @Summary      Trasladar stock entre sedes
// @Description  Atómico e idempotente por Idempotency-Key. Reenviar la misma clave devuelve 200 sin volver a mover stock.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string               true  "clave opaca del cliente"
// @Param        body             body    dto.TransferRequest  true  "product_id, from_location_id, to_location_id, qty"
// @Success      201  {object}  dto.MessageResponse
// @Success      200  {object}  dto.MessageResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/v1/stock/transfer [post]
func (h *StockHandler) Transfer(c *fiber.Ctx) error {
	claims := GetClaims(c)
	if claims == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	key := strings.TrimSpace(c.Get(HeaderIdempotencyKey))
	if key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_IDEMPOTENCY_KEY", Message: "header Idempotency-Key requerido"})
	}
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido: product_id, from_location_id, to_location_id y qty deben ser enteros"})
	}

	res, err := h.transfers.Transfer(c.UserContext(), inventory.TransferCommand{
		ProductID:      in.ProductID,
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		Quantity:       in.Qty,
		IdempotencyKey: key,
		Actor:          *claims,
		Origin:         requestOrigin(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	if res.AlreadyProcessed {
		return c.Status(fiber.StatusOK).JSON(dto.MessageResponse{Message: "Transfer already processed"})
	}
	return c.Status(fiber.StatusCreated).JSON(dto.MessageResponse{Message: "Transfer completed"})
}

// List godoc
// @Summary      Stock por producto y sede
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        product_id   query  int  false  "filtrar por producto"
// @Param        location_id  query  int  false  "filtrar por sede"
// @Success      200  {array}   entity.StockRow
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/v1/stock [get]
func (h *StockHandler) List(c *fiber.Ctx) error {
	productID, err := optionalID(c, "product_id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	locationID, err := optionalID(c, "location_id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	rows, err := h.queries.List(c.UserContext(), entity.StockFilter{ProductID: productID, LocationID: locationID})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(rows)
}

// Summary godoc
// @Summary      Totales de stock por sede
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   entity.LocationSummary
// @Router       /api/v1/stock/summary [get]
func (h *StockHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.queries.Summary(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(summary)
}

// Transfers godoc
// @Summary      Historial de traslados
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        limit  query  int  false  "máximo de registros (por defecto 50, máximo 500)"
// @Success      200  {array}   dto.TransferRecordResponse
// @Router       /api/v1/stock/transfers [get]
func (h *StockHandler) Transfers(c *fiber.Ctx) error {
	list, err := h.queries.RecentTransfers(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]dto.TransferRecordResponse, 0, len(list))
	for _, t := range list {
		out = append(out, dto.TransferRecordResponse{
			ID:             t.ID,
			ProductID:      t.ProductID,
			FromLocationID: t.FromLocationID,
			ToLocationID:   t.ToLocationID,
			Qty:            t.Quantity,
			IdempotencyKey: t.IdempotencyKey,
			CreatedBy:      t.CreatedBy,
			CreatedAt:      t.CreatedAt,
		})
	}
	return c.JSON(out)
}

// Report godoc
// @Summary      Reporte PDF de stock
// @Tags         stock
// @Security     Bearer
// @Produce      application/pdf
// @Success      200  {file}  binary
// @Router       /api/v1/stock/report.pdf [get]
func (h *StockHandler) Report(c *fiber.Ctx) error {
	pdf, err := h.queries.Report(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="stock-report.pdf"`)
	return c.Send(pdf)
}

func optionalID(c *fiber.Ctx, name string) (int64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError(name, "debe ser un entero positivo")
	}
	return id, nil
}
