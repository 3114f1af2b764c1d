package entity

import "time"

// Location sede o bodega donde se almacena stock.
type Location struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}
