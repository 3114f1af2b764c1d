package dto

import "time"

// TransferRequest cuerpo de POST /stock/transfer. La clave de idempotencia viaja en el header Idempotency-Key.
type TransferRequest struct {
	ProductID      int64 `json:"product_id"`
	FromLocationID int64 `json:"from_location_id"`
	ToLocationID   int64 `json:"to_location_id"`
	Qty            int64 `json:"qty"`
}

// TransferRecordResponse traslado del historial.
type TransferRecordResponse struct {
	ID             int64     `json:"id"`
	ProductID      int64     `json:"product_id"`
	FromLocationID int64     `json:"from_location_id"`
	ToLocationID   int64     `json:"to_location_id"`
	Qty            int64     `json:"qty"`
	IdempotencyKey string    `json:"idempotency_key"`
	CreatedBy      int64     `json:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
