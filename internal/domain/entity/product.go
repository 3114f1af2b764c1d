package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product producto del catálogo. El stock vive por sede en StockLevel.
type Product struct {
	ID        int64
	SKU       string
	Name      string
	UnitCost  decimal.Decimal // costo unitario usado para valorizar el stock
	CreatedAt time.Time
}
