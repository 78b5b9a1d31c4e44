package promo

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Resolution is the combined effect of a promocode sequence on a set of
// items. PerLine maps a product id to its discount fraction; products
// without an entry get no line discount. Global is the order-wide fraction.
type Resolution struct {
	PerLine map[string]decimal.Decimal
	Global  decimal.Decimal
}

// LineDiscount returns the discount fraction for the given product id, or
// zero when no code targeted it.
func (r *Resolution) LineDiscount(pid string) decimal.Decimal {
	if d, ok := r.PerLine[pid]; ok {
		return d
	}
	return decimal.Zero
}

// Resolver classifies a sequence of promocodes against a set of items and
// returns their combined discount effect.
type Resolver interface {
	Resolve(ctx context.Context, codes []string, items []Item) (*Resolution, error)
}

// RepoResolver implements Resolver by looking up codes in a Repository.
//
// Resolution is all-or-nothing: every code is looked up before any discount
// is recorded, so an unknown code fails the whole call without partial
// effects. Codes are applied in the given order; a later code targeting the
// same product (or a later Global code) overwrites the earlier one rather
// than stacking. A code whose product is not among the items is silently
// ignored.
type RepoResolver struct {
	repo Repository
}

// NewRepoResolver creates a RepoResolver backed by the given Repository.
func NewRepoResolver(repo Repository) *RepoResolver {
	return &RepoResolver{repo: repo}
}

// Resolve looks up every code and computes the resulting discount fractions
// for the given items. It returns ErrNotFound (wrapped with the offending
// code) when any code is unknown.
func (r *RepoResolver) Resolve(ctx context.Context, codes []string, items []Item) (*Resolution, error) {
	resolved := make([]*Promocode, len(codes))
	for i, code := range codes {
		p, err := r.repo.FindByCode(ctx, code)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, errors.Wrapf(ErrNotFound, "promocode %q", code)
			}
			return nil, errors.Wrapf(err, "lookup promocode %q", code)
		}
		resolved[i] = p
	}

	present := make(map[string]struct{}, len(items))
	for _, item := range items {
		present[item.PID] = struct{}{}
	}

	res := &Resolution{
		PerLine: make(map[string]decimal.Decimal),
		Global:  decimal.Zero,
	}

	for _, p := range resolved {
		switch {
		case p.IsGlobal():
			res.Global = p.Discount
		default:
			if _, ok := present[p.PID]; ok {
				res.PerLine[p.PID] = p.Discount
			}
		}
	}

	return res, nil
}
