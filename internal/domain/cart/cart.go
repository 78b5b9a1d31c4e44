package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for cart operations.
var (
	// ErrNotFound is returned when the user has no cart yet.
	ErrNotFound = errors.New("cart not found")
	// ErrConcurrentModification is returned when a cart update lost a
	// version race and should be retried by the caller.
	ErrConcurrentModification = errors.New("cart concurrently modified")
)

// InsufficientQuantityError indicates a removal asked for more units of a
// product than the cart holds (including the product being absent entirely).
type InsufficientQuantityError struct {
	PID       string
	Requested int
	InCart    int
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("cannot remove %d of product %s: cart has %d", e.Requested, e.PID, e.InCart)
}

// Line is one product entry in a cart.
// Invariant: LineTotal == Price * Quantity.
type Line struct {
	PID       string          `json:"pid"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Cart holds a user's pending line items and their running total.
// Invariant: Total == sum of LineTotal; PIDs are unique across Lines.
// A cart is never deleted, only emptied when an order is created from it.
type Cart struct {
	ID      string
	UID     string
	Lines   []Line
	Total   decimal.Decimal
	Version int64
}

// lineIndex returns the index of the line holding pid, or -1.
func (c *Cart) lineIndex(pid string) int {
	for i := range c.Lines {
		if c.Lines[i].PID == pid {
			return i
		}
	}
	return -1
}

// Snapshot returns a copy of the cart's lines for order creation. The copy
// shares nothing with the cart, so later cart mutations do not leak into the
// order.
func (c *Cart) Snapshot() []Line {
	lines := make([]Line, len(c.Lines))
	copy(lines, c.Lines)
	return lines
}

// Clear empties the cart in memory. Persisting the change is the caller's
// responsibility.
func (c *Cart) Clear() {
	c.Lines = nil
	c.Total = decimal.Zero
}

// Repository defines persistence operations for carts.
type Repository interface {
	// GetByUser returns the cart owned by uid, or ErrNotFound.
	GetByUser(ctx context.Context, uid string) (*Cart, error)
	// GetOrCreate returns the cart owned by uid, creating an empty one
	// when the user has none yet.
	GetOrCreate(ctx context.Context, uid string) (*Cart, error)
	// Update persists the cart's lines and total, guarded by the cart's
	// version. It returns ErrConcurrentModification when the stored
	// version no longer matches.
	Update(ctx context.Context, c *Cart) error
}
