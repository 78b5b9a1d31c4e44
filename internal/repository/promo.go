package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/io25nsk/minishop/internal/domain/promo"
)

const (
	getPromocodeSQL    = `SELECT code, pid, discount FROM promocodes WHERE code = $1`
	upsertPromocodeSQL = `INSERT INTO promocodes (code, pid, discount) VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET pid = EXCLUDED.pid, discount = EXCLUDED.discount`
)

var _ promo.Repository = (*PromoRepository)(nil)

// PromoRepository implements promo.Repository backed by PostgreSQL.
type PromoRepository struct {
	pool *pgxpool.Pool
}

// NewPromoRepository returns a PromoRepository that uses the given pool.
func NewPromoRepository(pool *pgxpool.Pool) *PromoRepository {
	return &PromoRepository{pool: pool}
}

// FindByCode looks up a promocode by its exact code.
// Returns promo.ErrNotFound when no such code exists.
func (r *PromoRepository) FindByCode(ctx context.Context, code string) (*promo.Promocode, error) {
	rows, err := r.pool.Query(ctx, getPromocodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding promocode %q: %w", code, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPromocode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promo.ErrNotFound
		}
		return nil, fmt.Errorf("finding promocode %q: %w", code, err)
	}
	return &p, nil
}

// Upsert inserts the promocode, replacing the rule for an existing code.
// Used by the seeding and ingest tools.
func (r *PromoRepository) Upsert(ctx context.Context, p *promo.Promocode) error {
	_, err := r.pool.Exec(ctx, upsertPromocodeSQL, p.Code, p.PID, p.Discount)
	if err != nil {
		return fmt.Errorf("upserting promocode %q: %w", p.Code, err)
	}
	return nil
}

func scanPromocode(row pgx.CollectableRow) (promo.Promocode, error) {
	var p promo.Promocode
	err := row.Scan(&p.Code, &p.PID, &p.Discount)
	return p, err
}
