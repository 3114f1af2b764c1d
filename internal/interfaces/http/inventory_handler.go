package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-transfer-api/internal/application/dto"
	"github.com/jhoicas/stock-transfer-api/internal/application/inventory"
)

// ReceiptService lo implementa inventory.ReceiptUseCase.
type ReceiptService interface {
	Receive(ctx context.Context, cmd inventory.ReceiptCommand) error
}

// InventoryHandler entradas de mercancía a una sede (protegido, admin/manager).
type InventoryHandler struct {
	receipts ReceiptService
	log      zerolog.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(receipts ReceiptService, log zerolog.Logger) *InventoryHandler {
	return &InventoryHandler{receipts: receipts, log: log}
}

// Receive godoc
// @Summary      Registrar entrada de stock en una sede
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReceiptRequest  true  "product_id, location_id, qty"
// @Success      201   {object}  dto.MessageResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/v1/stock/receipt [post]
func (h *InventoryHandler) Receive(c *fiber.Ctx) error {
	claims := GetClaims(c)
	if claims == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.ReceiptRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido: product_id, location_id y qty deben ser enteros"})
	}
	err := h.receipts.Receive(c.UserContext(), inventory.ReceiptCommand{
		ProductID:  in.ProductID,
		LocationID: in.LocationID,
		Quantity:   in.Qty,
		Actor:      *claims,
		Origin:     requestOrigin(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.MessageResponse{Message: "Stock received"})
}
