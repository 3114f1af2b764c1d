package auth

import "github.com/jhoicas/stock-transfer-api/internal/domain/entity"

// AuditRecorder destino fire-and-forget de las entradas de auditoría (login/logout).
type AuditRecorder interface {
	Record(entry *entity.AuditEntry)
}
