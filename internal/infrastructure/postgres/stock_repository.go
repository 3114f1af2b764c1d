package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // placeholders $n
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-transfer-api/internal/domain"
	"github.com/jhoicas/stock-transfer-api/internal/domain/entity"
	"github.com/jhoicas/stock-transfer-api/internal/domain/repository"
)

var (
	_ repository.StockRepository = (*StockRepo)(nil)
	_ repository.StockReader     = (*StockRepo)(nil)
)

var dialect = goqu.Dialect("postgres")

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// GetForUpdate obtiene el stock y bloquea la fila para update (SELECT FOR UPDATE).
// Si la fila no existe devuelve nil, nil.
func (r *StockRepo) GetForUpdate(ctx context.Context, productID, locationID int64) (*entity.StockLevel, error) {
	query := `
		SELECT product_id, location_id, quantity, updated_at
		FROM stock WHERE product_id = $1 AND location_id = $2
		FOR UPDATE`
	var s entity.StockLevel
	err := r.q.QueryRow(ctx, query, productID, locationID).Scan(
		&s.ProductID, &s.LocationID, &s.Quantity, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock for update: %w", err)
	}
	return &s, nil
}

// Decrement resta qty a la fila. El CHECK (quantity >= 0) de la tabla es la última barrera.
func (r *StockRepo) Decrement(ctx context.Context, productID, locationID, qty int64) error {
	query := `
		UPDATE stock SET quantity = quantity - $3, updated_at = now()
		WHERE product_id = $1 AND location_id = $2`
	tag, err := r.q.Exec(ctx, query, productID, locationID, qty)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInsufficientStock
		}
		return fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}

// AddOrCreate suma qty a la fila destino o la crea. Producto o sede inexistente -> domain.ErrNotFound.
func (r *StockRepo) AddOrCreate(ctx context.Context, productID, locationID, qty int64) error {
	query := `
		INSERT INTO stock (product_id, location_id, quantity, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (product_id, location_id)
		DO UPDATE SET quantity = stock.quantity + EXCLUDED.quantity, updated_at = now()`
	if _, err := r.q.Exec(ctx, query, productID, locationID, qty); err != nil {
		switch {
		case isForeignKeyViolation(err):
			return fmt.Errorf("upsert stock: %w", domain.ErrNotFound)
		case isOutOfRange(err):
			return fmt.Errorf("upsert stock: %w", domain.ErrOutOfRange)
		}
		return fmt.Errorf("upsert stock: %w", err)
	}
	return nil
}

// List stock con nombres de producto y sede; filtros opcionales por producto y sede.
func (r *StockRepo) List(ctx context.Context, filter entity.StockFilter) ([]entity.StockRow, error) {
	ds := dialect.From(goqu.T("stock").As("s")).
		Join(goqu.T("products").As("p"), goqu.On(goqu.I("p.id").Eq(goqu.I("s.product_id")))).
		Join(goqu.T("locations").As("l"), goqu.On(goqu.I("l.id").Eq(goqu.I("s.location_id")))).
		Select("s.product_id", "p.name", "s.location_id", "l.name", "s.quantity", "p.unit_cost").
		Order(goqu.I("p.name").Asc(), goqu.I("l.name").Asc())

	where := goqu.Ex{}
	if filter.ProductID > 0 {
		where["s.product_id"] = filter.ProductID
	}
	if filter.LocationID > 0 {
		where["s.location_id"] = filter.LocationID
	}
	if len(where) > 0 {
		ds = ds.Where(where)
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build stock query: %w", err)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	defer rows.Close()

	var list []entity.StockRow
	for rows.Next() {
		var row entity.StockRow
		if err := rows.Scan(
			&row.ProductID, &row.ProductName, &row.LocationID, &row.LocationName, &row.Quantity, &row.UnitCost,
		); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		row.StockValue = row.UnitCost.Mul(decimal.NewFromInt(row.Quantity))
		list = append(list, row)
	}
	return list, rows.Err()
}

// SummaryByLocation productos distintos con saldo, unidades y valor por sede.
func (r *StockRepo) SummaryByLocation(ctx context.Context) ([]entity.LocationSummary, error) {
	query := `
		SELECT l.id, l.name,
		       COUNT(s.product_id) FILTER (WHERE s.quantity > 0),
		       COALESCE(SUM(s.quantity), 0)::bigint,
		       COALESCE(SUM(s.quantity * p.unit_cost), 0)
		FROM locations l
		LEFT JOIN stock s ON s.location_id = l.id
		LEFT JOIN products p ON p.id = s.product_id
		GROUP BY l.id, l.name
		ORDER BY l.name`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("stock summary: %w", err)
	}
	defer rows.Close()

	var list []entity.LocationSummary
	for rows.Next() {
		var s entity.LocationSummary
		if err := rows.Scan(&s.LocationID, &s.LocationName, &s.Products, &s.Units, &s.Value); err != nil {
			return nil, fmt.Errorf("scan stock summary: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
