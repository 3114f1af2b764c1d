package dto

// ReceiptRequest body para POST /api/v1/stock/receipt (entrada de mercancía a una sede).
type ReceiptRequest struct {
	ProductID  int64 `json:"product_id"`
	LocationID int64 `json:"location_id"`
	Qty        int64 `json:"qty"`
}
