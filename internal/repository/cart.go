package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/io25nsk/minishop/internal/domain/cart"
	"github.com/io25nsk/minishop/pkg/hexid"
)

const (
	getCartByUserSQL = `SELECT id, uid, lines, total, version FROM carts WHERE uid = $1`

	createCartSQL = `INSERT INTO carts (id, uid) VALUES ($1, $2)
		ON CONFLICT (uid) DO NOTHING`

	updateCartSQL = `UPDATE carts SET lines = $2, total = $3, version = version + 1
		WHERE id = $1 AND version = $4`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Cart lines
// are stored as a JSONB document; updates are guarded by a version column.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// GetByUser returns the cart owned by uid, or cart.ErrNotFound.
func (r *CartRepository) GetByUser(ctx context.Context, uid string) (*cart.Cart, error) {
	rows, err := r.pool.Query(ctx, getCartByUserSQL, uid)
	if err != nil {
		return nil, fmt.Errorf("getting cart for user %q: %w", uid, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("getting cart for user %q: %w", uid, err)
	}
	return c, nil
}

// GetOrCreate returns the user's cart, inserting an empty one when the user
// has none. The insert is idempotent under concurrent first adds.
func (r *CartRepository) GetOrCreate(ctx context.Context, uid string) (*cart.Cart, error) {
	if _, err := r.pool.Exec(ctx, createCartSQL, hexid.New(), uid); err != nil {
		return nil, fmt.Errorf("creating cart for user %q: %w", uid, err)
	}
	return r.GetByUser(ctx, uid)
}

// Update persists the cart's lines and total. The update succeeds only when
// the stored version matches the one the cart was read at; otherwise it
// returns cart.ErrConcurrentModification.
func (r *CartRepository) Update(ctx context.Context, c *cart.Cart) error {
	lines := c.Lines
	if lines == nil {
		lines = []cart.Line{}
	}
	linesJSON, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshaling cart lines: %w", err)
	}

	tag, err := r.pool.Exec(ctx, updateCartSQL, c.ID, linesJSON, c.Total, c.Version)
	if err != nil {
		return fmt.Errorf("updating cart %q: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrConcurrentModification
	}

	c.Version++
	return nil
}

func scanCart(row pgx.CollectableRow) (*cart.Cart, error) {
	var (
		c         cart.Cart
		linesJSON []byte
	)
	if err := row.Scan(&c.ID, &c.UID, &linesJSON, &c.Total, &c.Version); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(linesJSON, &c.Lines); err != nil {
		return nil, fmt.Errorf("unmarshaling cart lines: %w", err)
	}
	return &c, nil
}
