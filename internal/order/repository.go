package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"restaurant-ops/internal/domain"
)

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore { return &PGStore{pool: pool} }

// CreateOrder runs the whole creation path in one transaction: products are
// locked row-by-row (FOR UPDATE), stock is verified and decremented, item
// snapshots are captured, totals computed, and the order plus its audit row
// inserted. Any failure rolls back everything.
func (s *PGStore) CreateOrder(ctx context.Context, o *domain.Order) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i := range o.Items {
		it := &o.Items[i]

		var (
			name     string
			priceStr string
			stock    int
			isActive bool
		)
		err := tx.QueryRow(ctx, `
SELECT name, price::text, stock, is_active
FROM products WHERE id = $1 AND company_id = $2
FOR UPDATE
`, it.ProductID, o.CompanyID).Scan(&name, &priceStr, &stock, &isActive)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrProductNotFound, it.ProductID)
		}
		if err != nil {
			return fmt.Errorf("lock product %s: %w", it.ProductID, err)
		}

		if !isActive {
			return &InsufficientStockError{ProductID: it.ProductID, Name: name, Requested: it.Quantity, Available: 0}
		}
		if stock < it.Quantity {
			return &InsufficientStockError{ProductID: it.ProductID, Name: name, Requested: it.Quantity, Available: stock}
		}

		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return fmt.Errorf("parse price for product %s: %w", it.ProductID, err)
		}
		it.Name = name
		it.UnitPrice = price

		if _, err := tx.Exec(ctx, `
UPDATE products SET stock = stock - $1, updated_at = now() WHERE id = $2
`, it.Quantity, it.ProductID); err != nil {
			return fmt.Errorf("decrement stock for %s: %w", it.ProductID, err)
		}
	}

	if err := computeTotals(o); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO orders
    (id, company_id, user_id, customer_name, customer_phone, table_number,
     status, subtotal, discount, total, notes, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`, o.ID, o.CompanyID, o.UserID, o.CustomerName, o.CustomerPhone, o.TableNumber,
		string(o.Status), o.Subtotal.StringFixed(2), o.Discount.StringFixed(2),
		o.Total.StringFixed(2), o.Notes, o.CreatedAt, o.UpdatedAt); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
INSERT INTO order_items (id, order_id, product_id, name, unit_price, quantity, notes)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, it.ID, o.ID, it.ProductID, it.Name, it.UnitPrice.StringFixed(2), it.Quantity, it.Notes); err != nil {
			return fmt.Errorf("insert order item %s: %w", it.Name, err)
		}
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO order_status_log (order_id, status, changed_by, changed_at, notes)
VALUES ($1, $2, $3, now(), '')
`, o.ID, string(o.Status), o.UserID); err != nil {
		return fmt.Errorf("insert status log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PGStore) GetOrder(ctx context.Context, companyID, orderID string) (domain.Order, error) {
	o, err := scanOrder(ctx, s.pool, companyID, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	items, err := s.orderItems(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	o.Items = items
	return o, nil
}

func (s *PGStore) ListOrders(ctx context.Context, companyID string, limit, offset int) ([]domain.Order, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, company_id, user_id, customer_name, customer_phone, table_number,
       status, subtotal::text, discount::text, total::text, notes, created_at, updated_at
FROM orders WHERE company_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		items, err := s.orderItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

// UpdateOrderStatus applies the transition only if the stored status still
// matches what the caller validated against.
func (s *PGStore) UpdateOrderStatus(ctx context.Context, companyID, orderID string, from, to domain.OrderStatus, noteLine, changedBy string) (domain.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current string
	err = tx.QueryRow(ctx, `
SELECT status FROM orders WHERE id = $1 AND company_id = $2 FOR UPDATE
`, orderID, companyID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("lock order: %w", err)
	}
	if domain.OrderStatus(current) != from {
		return domain.Order{}, errStatusChanged
	}

	if _, err := tx.Exec(ctx, `
UPDATE orders SET
  status = $2,
  notes = CASE WHEN $3 = '' THEN notes
               WHEN notes = '' THEN $3
               ELSE notes || E'\n' || $3 END,
  updated_at = now()
WHERE id = $1
`, orderID, string(to), noteLine); err != nil {
		return domain.Order{}, fmt.Errorf("update order: %w", err)
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO order_status_log (order_id, status, changed_by, changed_at, notes)
VALUES ($1, $2, $3, now(), $4)
`, orderID, string(to), changedBy, noteLine); err != nil {
		return domain.Order{}, fmt.Errorf("insert status log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, fmt.Errorf("commit: %w", err)
	}
	return s.GetOrder(ctx, companyID, orderID)
}

func (s *PGStore) orderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, product_id, name, unit_price::text, quantity, notes
FROM order_items WHERE order_id = $1
ORDER BY name
`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		var priceStr string
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Name, &priceStr, &it.Quantity, &it.Notes); err != nil {
			return nil, err
		}
		it.UnitPrice, err = decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("parse unit price: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(ctx context.Context, pool *pgxpool.Pool, companyID, orderID string) (domain.Order, error) {
	row := pool.QueryRow(ctx, `
SELECT id, company_id, user_id, customer_name, customer_phone, table_number,
       status, subtotal::text, discount::text, total::text, notes, created_at, updated_at
FROM orders WHERE id = $1 AND company_id = $2
`, orderID, companyID)
	o, err := scanOrderRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, ErrOrderNotFound
	}
	return o, err
}

func scanOrderRow(row rowScanner) (domain.Order, error) {
	var o domain.Order
	var status, subStr, discStr, totStr string
	if err := row.Scan(&o.ID, &o.CompanyID, &o.UserID, &o.CustomerName, &o.CustomerPhone,
		&o.TableNumber, &status, &subStr, &discStr, &totStr, &o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(status)
	var err error
	if o.Subtotal, err = decimal.NewFromString(subStr); err != nil {
		return domain.Order{}, fmt.Errorf("parse subtotal: %w", err)
	}
	if o.Discount, err = decimal.NewFromString(discStr); err != nil {
		return domain.Order{}, fmt.Errorf("parse discount: %w", err)
	}
	if o.Total, err = decimal.NewFromString(totStr); err != nil {
		return domain.Order{}, fmt.Errorf("parse total: %w", err)
	}
	return o, nil
}
