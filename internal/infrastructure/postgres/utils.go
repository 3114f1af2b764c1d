package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE relevantes.
const (
	codeUniqueViolation  = "23505"
	codeCheckViolation   = "23514"
	codeForeignKey       = "23503"
	codeOutOfRange       = "22003" // numeric_value_out_of_range
	codeLockNotAvailable = "55P03" // lock_timeout
	codeQueryCanceled    = "57014" // statement_timeout o cancelación
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}

func isCheckViolation(err error) bool {
	return pgCode(err) == codeCheckViolation
}

// isForeignKeyViolation producto o sede inexistente.
func isForeignKeyViolation(err error) bool {
	return pgCode(err) == codeForeignKey
}

// isOutOfRange la cantidad resultante no cabe en BIGINT.
func isOutOfRange(err error) bool {
	return pgCode(err) == codeOutOfRange
}

// isTimeout lock_timeout o statement_timeout vencidos.
func isTimeout(err error) bool {
	switch pgCode(err) {
	case codeLockNotAvailable, codeQueryCanceled:
		return true
	}
	return false
}
