package entity

import "time"

// TransferRecord registro inmutable de un traslado aceptado.
// La tabla también es el ledger de idempotencia: IdempotencyKey es única.
type TransferRecord struct {
	ID             int64     `json:"id"`
	ProductID      int64     `json:"product_id"`
	FromLocationID int64     `json:"from_location_id"`
	ToLocationID   int64     `json:"to_location_id"`
	Quantity       int64     `json:"quantity"`
	IdempotencyKey string    `json:"idempotency_key"`
	CreatedBy      int64     `json:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
