package entity

import "time"

// Acciones auditadas.
const (
	AuditActionStockTransfer = "STOCK_TRANSFER"
	AuditActionStockReceipt  = "STOCK_RECEIPT"
	AuditActionLogin         = "AUTH_LOGIN"
	AuditActionLogout        = "AUTH_LOGOUT"
)

// Tipos de entidad auditada.
const (
	AuditEntityStock = "stock"
	AuditEntityUser  = "user"
)

// RequestOrigin origen de la petición (ip, user-agent) para auditoría.
type RequestOrigin struct {
	IP        string
	UserAgent string
}

// AuditEntry registro append-only de una acción de negocio completada.
type AuditEntry struct {
	ID         string
	UserID     *int64
	Action     string
	EntityType string
	EntityID   *int64
	Metadata   map[string]any
	Origin     RequestOrigin
	CreatedAt  time.Time
}
