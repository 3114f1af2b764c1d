package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/stock-transfer-api/internal/domain"
	"github.com/jhoicas/stock-transfer-api/internal/domain/entity"
	"github.com/jhoicas/stock-transfer-api/internal/domain/repository"
)

const instrumentationName = "github.com/jhoicas/stock-transfer-api/internal/application/inventory"

// Resultados del traslado para el contador stock_transfers_total.
const (
	outcomeAccepted          = "accepted"
	outcomeAlreadyProcessed  = "already_processed"
	outcomeInsufficientStock = "insufficient_stock"
	outcomeInvalid           = "invalid"
	outcomeError             = "error"
)

// errAlreadyProcessed fuerza el Rollback cuando la clave ya tiene un traslado registrado.
var errAlreadyProcessed = errors.New("traslado ya procesado")

// TransferCommand entrada del traslado. Actor y Origin los completa el handler a partir del token y la petición.
type TransferCommand struct {
	ProductID      int64  `validate:"required,gt=0"`
	FromLocationID int64  `validate:"required,gt=0"`
	ToLocationID   int64  `validate:"required,gt=0,nefield=FromLocationID"`
	Quantity       int64  `validate:"required,gt=0"`
	IdempotencyKey string `validate:"required,max=255"`
	Actor          entity.AccessClaims
	Origin         entity.RequestOrigin
}

// TransferResult exactamente uno de Accepted o AlreadyProcessed es true.
type TransferResult struct {
	Accepted         bool
	AlreadyProcessed bool
	Record           *entity.TransferRecord
}

// TransferUseCase mueve stock entre dos sedes en una sola transacción,
// con idempotencia por clave y bloqueo de las filas origen y destino (SELECT FOR UPDATE).
type TransferUseCase struct {
	txRunner TxRunner
	audit    AuditRecorder
	validate *validator.Validate
	timeout  time.Duration
	log      zerolog.Logger

	tracer  trace.Tracer
	counter metric.Int64Counter
}

// NewTransferUseCase construye el caso de uso. timeout acota la duración total de la transacción (0 = sin límite propio).
func NewTransferUseCase(txRunner TxRunner, audit AuditRecorder, timeout time.Duration, log zerolog.Logger) *TransferUseCase {
	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"stock_transfers_total",
		metric.WithDescription("Traslados de stock por resultado"),
	)
	if err != nil {
		log.Warn().Err(err).Msg("no se pudo crear el contador de traslados")
	}
	return &TransferUseCase{
		txRunner: txRunner,
		audit:    audit,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		timeout:  timeout,
		log:      log,
		tracer:   otel.Tracer(instrumentationName),
		counter:  counter,
	}
}

// Transfer valida, abre la transacción, bloquea la fila origen, verifica saldo,
// descuenta del origen, suma al destino y registra el traslado. Commit o Rollback completo.
// La auditoría se emite después del Commit y nunca afecta el resultado.
func (uc *TransferUseCase) Transfer(ctx context.Context, cmd TransferCommand) (*TransferResult, error) {
	cmd.IdempotencyKey = strings.TrimSpace(cmd.IdempotencyKey)

	ctx, span := uc.tracer.Start(ctx, "inventory.transfer", trace.WithAttributes(
		attribute.Int64("product_id", cmd.ProductID),
		attribute.Int64("from_location_id", cmd.FromLocationID),
		attribute.Int64("to_location_id", cmd.ToLocationID),
		attribute.Int64("quantity", cmd.Quantity),
	))
	defer span.End()

	if err := uc.validateCommand(cmd); err != nil {
		uc.finish(ctx, span, outcomeInvalid, err)
		return nil, err
	}

	if uc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}

	var record *entity.TransferRecord
	err := uc.txRunner.Run(ctx, func(
		stockRepo repository.StockRepository,
		transferRepo repository.TransferRepository,
	) error {
		record = nil

		// Serializa los envíos con la misma clave; el segundo espera y luego ve el registro confirmado.
		if err := transferRepo.LockKey(ctx, cmd.IdempotencyKey); err != nil {
			return err
		}
		existing, err := transferRepo.GetByKey(ctx, cmd.IdempotencyKey)
		if err != nil {
			return err
		}
		if existing != nil {
			record = existing
			return errAlreadyProcessed
		}

		source, err := lockRows(ctx, stockRepo, cmd)
		if err != nil {
			return err
		}
		if source == nil || source.Quantity < cmd.Quantity {
			return domain.ErrInsufficientStock
		}

		if err := stockRepo.Decrement(ctx, cmd.ProductID, cmd.FromLocationID, cmd.Quantity); err != nil {
			return err
		}
		if err := stockRepo.AddOrCreate(ctx, cmd.ProductID, cmd.ToLocationID, cmd.Quantity); err != nil {
			return err
		}

		rec := &entity.TransferRecord{
			ProductID:      cmd.ProductID,
			FromLocationID: cmd.FromLocationID,
			ToLocationID:   cmd.ToLocationID,
			Quantity:       cmd.Quantity,
			IdempotencyKey: cmd.IdempotencyKey,
			CreatedBy:      cmd.Actor.UserID,
		}
		if err := transferRepo.Create(ctx, rec); err != nil {
			return err
		}
		record = rec
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, errAlreadyProcessed), errors.Is(err, domain.ErrDuplicate):
		uc.finish(ctx, span, outcomeAlreadyProcessed, nil)
		return &TransferResult{AlreadyProcessed: true, Record: record}, nil
	case errors.Is(err, domain.ErrInsufficientStock):
		uc.finish(ctx, span, outcomeInsufficientStock, err)
		return nil, err
	case errors.Is(err, domain.ErrNotFound):
		// Solo AddOrCreate lo devuelve: la sede destino no existe.
		verr := domain.NewValidationError("to_location_id", "la sede destino no existe")
		uc.finish(ctx, span, outcomeInvalid, verr)
		return nil, verr
	case errors.Is(err, domain.ErrOutOfRange):
		verr := domain.NewValidationError("qty", "la cantidad resultante en la sede destino excede el máximo permitido")
		uc.finish(ctx, span, outcomeInvalid, verr)
		return nil, verr
	default:
		perr := domain.NewPersistenceError("transfer", err)
		uc.log.Error().Err(err).
			Str("idempotency_key", cmd.IdempotencyKey).
			Int64("product_id", cmd.ProductID).
			Msg("traslado revertido")
		uc.finish(ctx, span, outcomeError, perr)
		return nil, perr
	}

	uc.finish(ctx, span, outcomeAccepted, nil)
	uc.recordAudit(cmd, record)
	return &TransferResult{Accepted: true, Record: record}, nil
}

// lockRows toma FOR UPDATE sobre origen y destino en orden ascendente de sede, hasta Commit/Rollback.
// Dos traslados en sentidos opuestos esperan en el mismo orden. Devuelve la fila origen (nil si no existe).
func lockRows(ctx context.Context, stockRepo repository.StockRepository, cmd TransferCommand) (*entity.StockLevel, error) {
	ids := [2]int64{cmd.FromLocationID, cmd.ToLocationID}
	if ids[1] < ids[0] {
		ids[0], ids[1] = ids[1], ids[0]
	}
	var source *entity.StockLevel
	for _, id := range ids {
		row, err := stockRepo.GetForUpdate(ctx, cmd.ProductID, id)
		if err != nil {
			return nil, err
		}
		if id == cmd.FromLocationID {
			source = row
		}
	}
	return source, nil
}

func (uc *TransferUseCase) validateCommand(cmd TransferCommand) error {
	err := uc.validate.Struct(cmd)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.NewValidationError("", err.Error())
	}
	fe := verrs[0]
	return domain.NewValidationError(commandFieldNames[fe.Field()], validationMessage(fe))
}

var commandFieldNames = map[string]string{
	"ProductID":      "product_id",
	"FromLocationID": "from_location_id",
	"ToLocationID":   "to_location_id",
	"Quantity":       "qty",
	"IdempotencyKey": "idempotency_key",
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Field() == "IdempotencyKey" {
			return "es obligatorio"
		}
		return "debe ser un entero positivo"
	case "gt":
		return "debe ser un entero positivo"
	case "nefield":
		return "origen y destino deben ser distintos"
	case "max":
		return "excede la longitud máxima"
	}
	return "valor inválido"
}

func (uc *TransferUseCase) recordAudit(cmd TransferCommand, rec *entity.TransferRecord) {
	if uc.audit == nil {
		return
	}
	userID := cmd.Actor.UserID
	productID := cmd.ProductID
	uc.audit.Record(&entity.AuditEntry{
		UserID:     &userID,
		Action:     entity.AuditActionStockTransfer,
		EntityType: entity.AuditEntityStock,
		EntityID:   &productID,
		Metadata: map[string]any{
			"from_location_id": cmd.FromLocationID,
			"to_location_id":   cmd.ToLocationID,
			"quantity":         cmd.Quantity,
			"idempotency_key":  cmd.IdempotencyKey,
			"transfer_id":      rec.ID,
		},
		Origin: cmd.Origin,
	})
}

func (uc *TransferUseCase) finish(ctx context.Context, span trace.Span, outcome string, err error) {
	span.SetAttributes(attribute.String("outcome", outcome))
	if err != nil && outcome == outcomeError {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if uc.counter != nil {
		uc.counter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}
