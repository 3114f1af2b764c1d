package inventory

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-transfer-api/internal/domain"
	"github.com/jhoicas/stock-transfer-api/internal/domain/entity"
	"github.com/jhoicas/stock-transfer-api/internal/domain/repository"
)

// ReceiptCommand entrada de mercancía a una sede (movimiento IN).
type ReceiptCommand struct {
	ProductID  int64 `validate:"required,gt=0"`
	LocationID int64 `validate:"required,gt=0"`
	Quantity   int64 `validate:"required,gt=0"`
	Actor      entity.AccessClaims
	Origin     entity.RequestOrigin
}

// ReceiptUseCase suma stock a una sede dentro de la misma unidad de trabajo que los traslados.
type ReceiptUseCase struct {
	txRunner TxRunner
	audit    AuditRecorder
	validate *validator.Validate
	log      zerolog.Logger
}

// NewReceiptUseCase construye el caso de uso. audit puede ser nil.
func NewReceiptUseCase(txRunner TxRunner, audit AuditRecorder, log zerolog.Logger) *ReceiptUseCase {
	return &ReceiptUseCase{
		txRunner: txRunner,
		audit:    audit,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

var receiptFieldNames = map[string]string{
	"ProductID":  "product_id",
	"LocationID": "location_id",
	"Quantity":   "qty",
}

// Receive registra la entrada. Producto o sede inexistente -> ValidationError.
func (uc *ReceiptUseCase) Receive(ctx context.Context, cmd ReceiptCommand) error {
	if err := uc.validate.Struct(cmd); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return domain.NewValidationError(receiptFieldNames[verrs[0].Field()], "debe ser un entero positivo")
		}
		return domain.NewValidationError("", err.Error())
	}

	err := uc.txRunner.Run(ctx, func(stockRepo repository.StockRepository, _ repository.TransferRepository) error {
		return stockRepo.AddOrCreate(ctx, cmd.ProductID, cmd.LocationID, cmd.Quantity)
	})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		return domain.NewValidationError("product_id", "el producto o la sede no existen")
	case errors.Is(err, domain.ErrOutOfRange):
		return domain.NewValidationError("qty", "la cantidad resultante excede el máximo permitido")
	default:
		uc.log.Error().Err(err).
			Int64("product_id", cmd.ProductID).
			Int64("location_id", cmd.LocationID).
			Msg("entrada de stock revertida")
		return domain.NewPersistenceError("receipt", err)
	}

	if uc.audit != nil {
		userID := cmd.Actor.UserID
		productID := cmd.ProductID
		uc.audit.Record(&entity.AuditEntry{
			UserID:     &userID,
			Action:     entity.AuditActionStockReceipt,
			EntityType: entity.AuditEntityStock,
			EntityID:   &productID,
			Metadata: map[string]any{
				"location_id": cmd.LocationID,
				"quantity":    cmd.Quantity,
			},
			Origin: cmd.Origin,
		})
	}
	return nil
}
