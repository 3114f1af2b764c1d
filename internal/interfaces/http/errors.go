package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-transfer-api/internal/application/dto"
	"github.com/jhoicas/stock-transfer-api/internal/domain"
)

// mapError traduce errores de dominio a status HTTP y cuerpo. Nunca expone detalles del driver.
func mapError(err error) (int, dto.ErrorResponse) {
	var ae *domain.AuthError
	if errors.As(err, &ae) {
		return mapAuthError(ae)
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: ve.Error()}
	}
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrOutOfRange):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"}
	case errors.Is(err, domain.ErrInsufficientStock):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: "stock insuficiente en la sede de origen"}
	case errors.Is(err, domain.ErrDuplicate):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "DUPLICATE", Message: "el recurso ya existe"}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"}
	case errors.Is(err, domain.ErrPersistence):
		return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "PERSISTENCE", Message: "no se pudo completar la operación; puede reintentar con la misma Idempotency-Key"}
	}
	return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"}
}

func mapAuthError(ae *domain.AuthError) (int, dto.ErrorResponse) {
	switch ae.Reason {
	case domain.AuthMissingToken:
		return fiber.StatusUnauthorized, dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido: Bearer <token>"}
	case domain.AuthInvalidOrExpired:
		return fiber.StatusUnauthorized, dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"}
	case domain.AuthInvalidCredentials:
		return fiber.StatusUnauthorized, dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "credenciales inválidas"}
	case domain.AuthInvalidRefresh:
		return fiber.StatusUnauthorized, dto.ErrorResponse{Code: "INVALID_REFRESH", Message: "sesión inválida o expirada"}
	case domain.AuthInactiveUser:
		return fiber.StatusForbidden, dto.ErrorResponse{Code: "FORBIDDEN", Message: "cuenta inactiva o suspendida"}
	case domain.AuthForbidden:
		return fiber.StatusForbidden, dto.ErrorResponse{Code: "FORBIDDEN", Message: "rol sin permiso para esta operación"}
	}
	return fiber.StatusUnauthorized, dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "no autorizado"}
}

// writeError responde con el error mapeado; los 5xx se registran con la causa real.
func writeError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	status, body := mapError(err)
	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Interface("request_id", c.Locals(requestIDKey)).
			Msg("error procesando petición")
	}
	return c.Status(status).JSON(body)
}

// ErrorHandler de Fiber para errores no manejados por los handlers (404 de ruta, panics recuperados, etc.).
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code := strings.ToUpper(strings.ReplaceAll(http.StatusText(fe.Code), " ", "_"))
			if code == "" {
				code = "ERROR"
			}
			return c.Status(fe.Code).JSON(dto.ErrorResponse{Code: code, Message: fe.Message})
		}
		return writeError(c, log, err)
	}
}
