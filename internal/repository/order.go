package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/backoffice/internal/domain/order"
)

const (
	// NULLIF maps the zero client reference of date-only imported orders to NULL.
	insertOrderSQL = `INSERT INTO orders (client_id, order_date, total)
		VALUES (NULLIF($1, 0), $2, $3) RETURNING id`

	updateOrderSQL = `UPDATE orders SET client_id = NULLIF($2, 0), order_date = $3, total = $4 WHERE id = $1`

	insertLineSQL = `INSERT INTO order_lines (order_id, product_id, product_name, quantity, unit_price, subtotal, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	deleteLinesSQL = `DELETE FROM order_lines WHERE order_id = $1`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`

	// decrementStockSQL is the serialization point for concurrent commits: the
	// decrement only applies where the remaining stock covers the request, under
	// the row lock the UPDATE itself takes. Zero rows affected means the request
	// can no longer be satisfied.
	decrementStockSQL = `UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`

	getStockSQL = `SELECT stock FROM products WHERE id = $1`

	// restoreStockSQL gives an order's consumed quantities back to the catalog,
	// aggregated per product.
	restoreStockSQL = `UPDATE products p SET stock = p.stock + r.qty
		FROM (SELECT product_id, SUM(quantity) AS qty
			FROM order_lines WHERE order_id = $1 GROUP BY product_id) r
		WHERE p.id = r.product_id`

	getOrderByIDSQL = `SELECT id, COALESCE(client_id, 0), order_date, total FROM orders WHERE id = $1`

	listOrdersSQL = `SELECT id, COALESCE(client_id, 0), order_date, total FROM orders ORDER BY order_date DESC, id DESC`

	searchOrdersSQL = `SELECT o.id, o.client_id, o.order_date, o.total FROM orders o
		JOIN clients c ON c.id = o.client_id
		WHERE c.name ILIKE '%' || $1 || '%'
		ORDER BY o.order_date DESC, o.id DESC`

	getLinesSQL = `SELECT product_id, product_name, quantity, unit_price, subtotal
		FROM order_lines WHERE order_id = $1 ORDER BY position`

	getLinesByOrderIDsSQL = `SELECT order_id, product_id, product_name, quantity, unit_price, subtotal
		FROM order_lines WHERE order_id = ANY($1) ORDER BY order_id, position`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. All writes
// run in a single transaction so the order aggregate and its stock effects are
// committed or rolled back together.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order header and lines and decrements stock for every
// line, all in one transaction. When any decrement cannot be satisfied the
// transaction rolls back and *order.InsufficientStockError reports the fresh
// available quantity.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning commit transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.QueryRow(ctx, insertOrderSQL, o.ClientID, o.Date, o.Total).Scan(&o.ID); err != nil {
		return fmt.Errorf("inserting order header: %w", err)
	}

	if err := insertLines(ctx, tx, o.ID, o.Lines); err != nil {
		return err
	}
	if err := decrementStock(ctx, tx, o.Lines); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %d: %w", o.ID, err)
	}
	return nil
}

// Update replaces an existing order: the old lines' stock effect is retracted,
// the lines are replaced, and the new decrements applied, all in one
// transaction.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning update transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, restoreStockSQL, o.ID); err != nil {
		return fmt.Errorf("restoring stock for order %d: %w", o.ID, err)
	}
	if _, err := tx.Exec(ctx, deleteLinesSQL, o.ID); err != nil {
		return fmt.Errorf("deleting lines for order %d: %w", o.ID, err)
	}

	ct, err := tx.Exec(ctx, updateOrderSQL, o.ID, o.ClientID, o.Date, o.Total)
	if err != nil {
		return fmt.Errorf("updating order %d: %w", o.ID, err)
	}
	if ct.RowsAffected() == 0 {
		return order.ErrNotFound
	}

	if err := insertLines(ctx, tx, o.ID, o.Lines); err != nil {
		return err
	}
	if err := decrementStock(ctx, tx, o.Lines); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order update %d: %w", o.ID, err)
	}
	return nil
}

// Delete removes the order and restores the stock its lines had consumed.
func (r *OrderRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, restoreStockSQL, id); err != nil {
		return fmt.Errorf("restoring stock for order %d: %w", id, err)
	}

	ct, err := tx.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return fmt.Errorf("deleting order %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return order.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order delete %d: %w", id, err)
	}
	return nil
}

// GetByID returns the order aggregate with its lines in position order.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrderHeader)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	lineRows, err := r.pool.Query(ctx, getLinesSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting lines for order %d: %w", id, err)
	}
	o.Lines, err = pgx.CollectRows(lineRows, scanLine)
	if err != nil {
		return nil, fmt.Errorf("getting lines for order %d: %w", id, err)
	}
	return &o, nil
}

// List returns all orders, newest first, with their lines attached.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	headers, err := pgx.CollectRows(rows, scanOrderHeader)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return r.attachLines(ctx, headers)
}

// SearchByClientName returns orders whose client's name contains the term.
func (r *OrderRepository) SearchByClientName(ctx context.Context, term string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, searchOrdersSQL, term)
	if err != nil {
		return nil, fmt.Errorf("searching orders: %w", err)
	}
	headers, err := pgx.CollectRows(rows, scanOrderHeader)
	if err != nil {
		return nil, fmt.Errorf("searching orders: %w", err)
	}
	return r.attachLines(ctx, headers)
}

// attachLines batch-loads the lines for the given headers in one query.
func (r *OrderRepository) attachLines(ctx context.Context, headers []order.Order) ([]order.Order, error) {
	if len(headers) == 0 {
		return headers, nil
	}

	ids := make([]int64, len(headers))
	index := make(map[int64]int, len(headers))
	for i := range headers {
		ids[i] = headers[i].ID
		index[headers[i].ID] = i
	}

	rows, err := r.pool.Query(ctx, getLinesByOrderIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID int64
			l       order.Line
		)
		if err := rows.Scan(&orderID, &l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice, &l.Subtotal); err != nil {
			return nil, fmt.Errorf("scanning order line: %w", err)
		}
		i := index[orderID]
		headers[i].Lines = append(headers[i].Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading order lines: %w", err)
	}
	return headers, nil
}

func insertLines(ctx context.Context, tx pgx.Tx, orderID int64, lines []order.Line) error {
	for i, l := range lines {
		_, err := tx.Exec(ctx, insertLineSQL,
			orderID, l.ProductID, l.ProductName, l.Quantity, l.UnitPrice, l.Subtotal, i,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return &order.ProductNotFoundError{ProductID: l.ProductID}
			}
			return fmt.Errorf("inserting line %d of order %d: %w", i, orderID, err)
		}
	}
	return nil
}

func decrementStock(ctx context.Context, tx pgx.Tx, lines []order.Line) error {
	for _, l := range lines {
		ct, err := tx.Exec(ctx, decrementStockSQL, l.ProductID, l.Quantity)
		if err != nil {
			return fmt.Errorf("decrementing stock for product %d: %w", l.ProductID, err)
		}
		if ct.RowsAffected() != 0 {
			continue
		}

		var available int
		err = tx.QueryRow(ctx, getStockSQL, l.ProductID).Scan(&available)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return &order.ProductNotFoundError{ProductID: l.ProductID}
			}
			return fmt.Errorf("reading stock for product %d: %w", l.ProductID, err)
		}
		return &order.InsufficientStockError{
			ProductID: l.ProductID,
			Requested: l.Quantity,
			Available: available,
		}
	}
	return nil
}

func scanOrderHeader(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(&o.ID, &o.ClientID, &o.Date, &o.Total)
	return o, err
}

func scanLine(row pgx.CollectableRow) (order.Line, error) {
	var l order.Line
	err := row.Scan(&l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice, &l.Subtotal)
	return l, err
}
