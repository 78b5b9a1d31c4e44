package promo

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// TargetGlobal marks a promocode that discounts the whole order instead of a
// single product line.
const TargetGlobal = "Global"

// ErrNotFound is returned when a requested promocode does not exist.
var ErrNotFound = errors.New("promocode not found")

// Promocode is a read-only discount rule: either scoped to one product or,
// when PID is TargetGlobal, applied to the order's post-line-discount total.
// Discount is a fraction in [0, 1].
type Promocode struct {
	Code     string
	PID      string
	Discount decimal.Decimal
}

// IsGlobal reports whether the code targets the whole order.
func (p Promocode) IsGlobal() bool {
	return p.PID == TargetGlobal
}

// Item is a product line viewed by the resolver for discount calculation.
type Item struct {
	PID       string
	LineTotal decimal.Decimal
}

// Repository provides lookup of promocodes by their code.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Promocode, error)
}
