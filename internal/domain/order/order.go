package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the payment lifecycle state of an order.
//
// Transitions: Created -> Paid, Created -> Expired, Paid -> Returned.
// Returned marks "has at least one returned line" and still accepts further
// partial returns; Expired is terminal.
type Status string

const (
	StatusCreated  Status = "Created"
	StatusPaid     Status = "Paid"
	StatusExpired  Status = "Expired"
	StatusReturned Status = "Returned"
)

// ReturnStatusReturned marks an order line that has at least one return.
const ReturnStatusReturned = "Returned"

// Sentinel errors for order operations.
var (
	// ErrNotFound is returned when a requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrEmptyCart is returned when order creation finds no cart lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrAlreadyPaid is returned when paying an order that is Paid or Returned.
	ErrAlreadyPaid = errors.New("order already paid")
	// ErrExpired is returned when paying an order past its payment timeout.
	ErrExpired = errors.New("order expired")
	// ErrNotPaid is returned when returning products from an unpaid order.
	ErrNotPaid = errors.New("order is not paid")
	// ErrLineNotFound is returned when the order has no line for the product.
	ErrLineNotFound = errors.New("product not in order")
	// ErrNoReturns is returned when asking return status of an order
	// without any returned lines.
	ErrNoReturns = errors.New("order has no returned products")
	// ErrPaymentDeclined is returned when the gateway declines a charge.
	// The order is left unchanged, so the caller may retry.
	ErrPaymentDeclined = errors.New("payment declined")
	// ErrRefundFailed is returned when the gateway declines a refund.
	// No return state is persisted.
	ErrRefundFailed = errors.New("refund failed")
	// ErrConcurrentModification is returned when a state transition lost a
	// version race against another writer.
	ErrConcurrentModification = errors.New("order concurrently modified")
)

// ReturnQuantityExceededError indicates a return asked for more units than
// remain returnable on the line.
type ReturnQuantityExceededError struct {
	PID       string
	Requested int
	Remaining int
}

func (e *ReturnQuantityExceededError) Error() string {
	return fmt.Sprintf("cannot return %d of product %s: %d returnable", e.Requested, e.PID, e.Remaining)
}

// Line is one product entry in an order, with its own discount and return
// bookkeeping. Prices are frozen at order creation.
//
// Invariants: DiscountAmount == LineTotal * Discount;
// AmountWithDiscount == LineTotal - DiscountAmount;
// 0 <= ReturnedQuantity <= Quantity.
type Line struct {
	PID                string          `json:"pid"`
	Price              decimal.Decimal `json:"price"`
	Quantity           int             `json:"quantity"`
	LineTotal          decimal.Decimal `json:"line_total"`
	Discount           decimal.Decimal `json:"discount"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	AmountWithDiscount decimal.Decimal `json:"amount_with_discount"`
	ReturnedQuantity   int             `json:"returned_quantity"`
	ReturnedAmount     decimal.Decimal `json:"returned_amount"`
	ReturnStatus       string          `json:"return_status,omitempty"`
	ReturnDates        []time.Time     `json:"return_dates,omitempty"`
}

// Order is an immutable snapshot of a cart plus lifecycle state.
//
// Invariants: Total == sum(LineTotal) - sum(DiscountAmount);
// TotalWithDiscount == Total - GlobalDiscountAmount.
type Order struct {
	ID                   string
	UID                  string
	CreatedAt            time.Time
	Lines                []Line
	Promocodes           []string
	GlobalDiscount       decimal.Decimal
	GlobalDiscountAmount decimal.Decimal
	Total                decimal.Decimal
	TotalWithDiscount    decimal.Decimal
	Status               Status
	PayID                string
	PayDate              *time.Time
	PayStatus            string
	PaySystem            string
	Version              int64
}

// lineIndex returns the index of the line holding pid, or -1.
func (o *Order) lineIndex(pid string) int {
	for i := range o.Lines {
		if o.Lines[i].PID == pid {
			return i
		}
	}
	return -1
}

// LineReturn is one entry of an order's return status report.
type LineReturn struct {
	PID          string
	ReturnStatus string
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	// GetByID returns the order, or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, uid string) ([]Order, error)
	// Update persists the order's mutable state, guarded by the order's
	// version. It returns ErrConcurrentModification when the stored
	// version no longer matches.
	Update(ctx context.Context, o *Order) error
	// ExpireIfCreated atomically flips the order to Expired when it is
	// still Created. It reports whether the transition happened; an order
	// in any other state is left untouched without error.
	ExpireIfCreated(ctx context.Context, id string) (bool, error)
}
