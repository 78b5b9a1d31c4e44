package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/io25nsk/minishop/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, uid, created_at, lines, promocodes,
		global_discount, global_discount_amount, total, total_with_discount,
		status, pay_id, pay_date, pay_status, pay_system)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	getOrderByIDSQL = `SELECT id, uid, created_at, lines, promocodes,
		global_discount, global_discount_amount, total, total_with_discount,
		status, pay_id, pay_date, pay_status, pay_system, version
		FROM orders WHERE id = $1`

	listOrdersByUserSQL = `SELECT id, uid, created_at, lines, promocodes,
		global_discount, global_discount_amount, total, total_with_discount,
		status, pay_id, pay_date, pay_status, pay_system, version
		FROM orders WHERE uid = $1 ORDER BY created_at`

	updateOrderSQL = `UPDATE orders SET lines = $2, status = $3, pay_id = $4,
		pay_date = $5, pay_status = $6, pay_system = $7, version = version + 1
		WHERE id = $1 AND version = $8`

	expireOrderSQL = `UPDATE orders SET status = $2, version = version + 1
		WHERE id = $1 AND status = $3`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Order
// lines are stored as a JSONB document; state transitions are guarded by a
// version column so racing writers lose deterministically.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	linesJSON, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("marshaling order lines: %w", err)
	}

	promocodes := o.Promocodes
	if promocodes == nil {
		promocodes = []string{}
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.UID, o.CreatedAt, linesJSON, promocodes,
		o.GlobalDiscount, o.GlobalDiscountAmount, o.Total, o.TotalWithDiscount,
		string(o.Status), o.PayID, o.PayDate, o.PayStatus, o.PaySystem,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	o.Version = 1
	return nil
}

// GetByID returns one order, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return o, nil
}

// ListByUser returns all orders of one user, oldest first.
func (r *OrderRepository) ListByUser(ctx context.Context, uid string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, uid)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", uid, err)
	}

	ptrs, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", uid, err)
	}

	orders := make([]order.Order, len(ptrs))
	for i, o := range ptrs {
		orders[i] = *o
	}
	return orders, nil
}

// Update persists the order's mutable state (lines, status, payment fields).
// The update succeeds only when the stored version matches the one the order
// was read at; otherwise it returns order.ErrConcurrentModification.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	linesJSON, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("marshaling order lines: %w", err)
	}

	tag, err := r.pool.Exec(ctx, updateOrderSQL,
		o.ID, linesJSON, string(o.Status), o.PayID, o.PayDate, o.PayStatus, o.PaySystem, o.Version,
	)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrConcurrentModification
	}

	o.Version++
	return nil
}

// ExpireIfCreated atomically transitions the order to Expired when it is
// still Created. No rows affected means the order was already settled or
// expired, which is not an error.
func (r *OrderRepository) ExpireIfCreated(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, expireOrderSQL, id, string(order.StatusExpired), string(order.StatusCreated))
	if err != nil {
		return false, fmt.Errorf("expiring order %q: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanOrder(row pgx.CollectableRow) (*order.Order, error) {
	var (
		o         order.Order
		linesJSON []byte
		status    string
	)
	err := row.Scan(
		&o.ID, &o.UID, &o.CreatedAt, &linesJSON, &o.Promocodes,
		&o.GlobalDiscount, &o.GlobalDiscountAmount, &o.Total, &o.TotalWithDiscount,
		&status, &o.PayID, &o.PayDate, &o.PayStatus, &o.PaySystem, &o.Version,
	)
	if err != nil {
		return nil, err
	}
	o.Status = order.Status(status)
	if err := json.Unmarshal(linesJSON, &o.Lines); err != nil {
		return nil, fmt.Errorf("unmarshaling order lines: %w", err)
	}
	return &o, nil
}
