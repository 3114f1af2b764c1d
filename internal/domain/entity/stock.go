package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockLevel cantidad de un producto en una sede. Única por (ProductID, LocationID); Quantity >= 0.
type StockLevel struct {
	ProductID  int64
	LocationID int64
	Quantity   int64
	UpdatedAt  time.Time
}

// StockRow fila del listado de stock con nombres y valorización.
type StockRow struct {
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	LocationID   int64           `json:"location_id"`
	LocationName string          `json:"location_name"`
	Quantity     int64           `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	StockValue   decimal.Decimal `json:"stock_value"` // Quantity * UnitCost
}

// StockFilter filtros opcionales del listado (cero = sin filtro).
type StockFilter struct {
	ProductID  int64
	LocationID int64
}

// LocationSummary totales por sede para el dashboard.
type LocationSummary struct {
	LocationID   int64           `json:"location_id"`
	LocationName string          `json:"location_name"`
	Products     int64           `json:"products"`
	Units        int64           `json:"units"`
	Value        decimal.Decimal `json:"value"`
}
