package purchaseorder

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore backs purchase orders with pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a pgx-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var _ Store = (*PostgresStore)(nil)

// CreateOrder inserts the order and its lines in one transaction.
func (s *PostgresStore) CreateOrder(ctx context.Context, order Order) (*Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create order: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO purchase_orders (id, session_id, supplier_name, total_cost, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING created_at`,
		order.ID, order.SessionID, order.SupplierName, order.TotalCost.String()).Scan(&order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	for i := range order.Lines {
		line := &order.Lines[i]
		if line.ID == uuid.Nil {
			line.ID = uuid.New()
		}
		line.OrderID = order.ID
		_, err := tx.Exec(ctx, `
			INSERT INTO purchase_order_lines
				(id, order_id, product_id, variant_id, title, platform_name, quantity, basis, unit_cost, line_cost)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			line.ID, line.OrderID, line.ProductID, line.VariantID, line.Title, line.PlatformName,
			line.Quantity, string(line.Basis), line.UnitCost.String(), line.LineCost.String())
		if err != nil {
			return nil, fmt.Errorf("insert order line: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create order: %w", err)
	}
	return &order, nil
}

// GetOrder fetches an order with its lines.
func (s *PostgresStore) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, session_id, supplier_name, total_cost::text, created_at
		FROM purchase_orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Lines, err = s.listLines(ctx, order.ID); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders returns orders newest first with the total count. Lines are
// loaded per order; listings are small enough that this stays cheap.
func (s *PostgresStore) ListOrders(ctx context.Context, filter ListFilter) ([]Order, int64, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM purchase_orders`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, supplier_name, total_cost::text, created_at
		FROM purchase_orders
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	for i := range out {
		if out[i].Lines, err = s.listLines(ctx, out[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

func (s *PostgresStore) listLines(ctx context.Context, orderID uuid.UUID) ([]Line, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, product_id, variant_id, title, platform_name, quantity, basis,
		       unit_cost::text, line_cost::text
		FROM purchase_order_lines
		WHERE order_id = $1
		ORDER BY title, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var (
			line               Line
			unitCost, lineCost string
		)
		err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.VariantID, &line.Title,
			&line.PlatformName, &line.Quantity, &line.Basis, &unitCost, &lineCost)
		if err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		if line.UnitCost, err = decimal.NewFromString(unitCost); err != nil {
			return nil, fmt.Errorf("parse unit cost: %w", err)
		}
		if line.LineCost, err = decimal.NewFromString(lineCost); err != nil {
			return nil, fmt.Errorf("parse line cost: %w", err)
		}
		out = append(out, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	return out, nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		order Order
		total string
	)
	if err := row.Scan(&order.ID, &order.SessionID, &order.SupplierName, &total, &order.CreatedAt); err != nil {
		return nil, err
	}
	parsed, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("parse total cost: %w", err)
	}
	order.TotalCost = parsed
	return &order, nil
}
