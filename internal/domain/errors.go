package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrPersistence       = errors.New("fallo de persistencia")
	ErrOutOfRange        = errors.New("valor fuera de rango")
)

// Razones de AuthError.
const (
	AuthMissingToken       = "missing_token"
	AuthInvalidOrExpired   = "invalid_or_expired"
	AuthForbidden          = "forbidden"
	AuthInvalidCredentials = "invalid_credentials"
	AuthInvalidRefresh     = "invalid_refresh"
	AuthInactiveUser       = "inactive_user"
)

// ValidationError entrada mal formada o incompleta; nunca llega a mutar nada.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap permite errors.Is(err, ErrInvalidInput).
func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError construye un ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AuthError fallo de token, credenciales o rol.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return "auth: " + e.Reason }

// NewAuthError construye un AuthError con la razón dada.
func NewAuthError(reason string) *AuthError {
	return &AuthError{Reason: reason}
}

// IsForbidden indica si el error corresponde a un 403 (token válido, permiso insuficiente).
func (e *AuthError) IsForbidden() bool {
	return e.Reason == AuthForbidden || e.Reason == AuthInactiveUser
}

// PersistenceError fallo de infraestructura dentro de la unidad de trabajo.
// La transacción ya fue revertida cuando este error llega al caller.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is permite errors.Is(err, ErrPersistence) sin perder la causa original.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// NewPersistenceError envuelve err; si ya es un PersistenceError lo devuelve tal cual.
func NewPersistenceError(op string, err error) error {
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
