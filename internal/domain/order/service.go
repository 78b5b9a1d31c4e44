package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/io25nsk/minishop/internal/domain/cart"
	"github.com/io25nsk/minishop/internal/domain/payment"
	"github.com/io25nsk/minishop/internal/domain/promo"
	"github.com/io25nsk/minishop/internal/scheduler"
	"github.com/io25nsk/minishop/pkg/hexid"
)

// expireDeadline bounds the store round-trip of a fired expiry check.
const expireDeadline = 5 * time.Second

var one = decimal.NewFromInt(1)

// Service is the order ledger: it creates orders from carts, applies
// promocodes, and drives the payment / expiry / return state machine.
type Service struct {
	carts    cart.Repository
	orders   Repository
	resolver promo.Resolver
	gateway  payment.Gateway
	runner   scheduler.Runner
	lg       *zap.Logger

	now func() time.Time
}

// NewService creates an order Service with the required dependencies.
func NewService(
	carts cart.Repository,
	orders Repository,
	resolver promo.Resolver,
	gateway payment.Gateway,
	runner scheduler.Runner,
	lg *zap.Logger,
) *Service {
	return &Service{
		carts:    carts,
		orders:   orders,
		resolver: resolver,
		gateway:  gateway,
		runner:   runner,
		lg:       lg,
		now:      time.Now,
	}
}

// CreateOrder snapshots the user's cart into a new order, applies the
// requested promocodes, empties the cart, and arms the payment-timeout
// check when payTimeout is positive.
//
// It returns ErrEmptyCart when the cart has no lines and promo.ErrNotFound
// when any promocode is unknown; in both cases nothing is written.
func (s *Service) CreateOrder(ctx context.Context, uid string, promocodes []string, payTimeout time.Duration) (*Order, error) {
	c, err := s.carts.GetByUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	if len(c.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	snapshot := c.Snapshot()
	lines := make([]Line, len(snapshot))
	items := make([]promo.Item, len(snapshot))
	for i, l := range snapshot {
		lines[i] = Line{
			PID:                l.PID,
			Price:              l.Price,
			Quantity:           l.Quantity,
			LineTotal:          l.LineTotal,
			Discount:           decimal.Zero,
			DiscountAmount:     decimal.Zero,
			AmountWithDiscount: l.LineTotal,
			ReturnedAmount:     decimal.Zero,
		}
		items[i] = promo.Item{PID: l.PID, LineTotal: l.LineTotal}
	}

	res, err := s.resolver.Resolve(ctx, promocodes, items)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for i := range lines {
		d := res.LineDiscount(lines[i].PID)
		if d.IsPositive() {
			lines[i].Discount = d
			lines[i].DiscountAmount = lines[i].LineTotal.Mul(d)
			lines[i].AmountWithDiscount = lines[i].LineTotal.Sub(lines[i].DiscountAmount)
		}
		total = total.Add(lines[i].AmountWithDiscount)
	}
	globalAmount := total.Mul(res.Global)

	o := &Order{
		ID:                   hexid.New(),
		UID:                  uid,
		CreatedAt:            s.now(),
		Lines:                lines,
		Promocodes:           promocodes,
		GlobalDiscount:       res.Global,
		GlobalDiscountAmount: globalAmount,
		Total:                total,
		TotalWithDiscount:    total.Sub(globalAmount),
		Status:               StatusCreated,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	c.Clear()
	if err := s.carts.Update(ctx, c); err != nil {
		// The order exists; a cart that raced a concurrent mutation is
		// surfaced to the caller instead of being clobbered.
		return nil, errors.Wrap(err, "clear cart")
	}

	if payTimeout > 0 {
		oid := o.ID
		s.runner.ScheduleOnce(payTimeout, func() {
			s.expire(oid)
		})
	}

	return o, nil
}

// Pay settles the order through the payment gateway and transitions it from
// Created to Paid.
func (s *Service) Pay(ctx context.Context, oid, paySystem string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	switch o.Status {
	case StatusPaid, StatusReturned:
		return nil, ErrAlreadyPaid
	case StatusExpired:
		return nil, ErrExpired
	}

	res, err := s.gateway.Charge(ctx, o.ID, o.TotalWithDiscount, paySystem)
	if err != nil {
		return nil, errors.Wrap(err, "charge")
	}
	if res.Status != payment.StatusSuccessful {
		return nil, ErrPaymentDeclined
	}

	o.Status = StatusPaid
	o.PayID = res.PayID
	o.PayDate = &res.PayDate
	o.PayStatus = string(res.Status)
	o.PaySystem = paySystem
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Return refunds quantity units of one product line from a paid order.
// Discounts compound: the refund is quantity * price * (1 - line discount)
// * (1 - global discount). Further partial returns on an already Returned
// order are allowed.
func (s *Service) Return(ctx context.Context, oid, pid string, quantity int) (*Order, error) {
	o, err := s.orders.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusPaid && o.Status != StatusReturned {
		return nil, ErrNotPaid
	}

	i := o.lineIndex(pid)
	if i < 0 {
		return nil, ErrLineNotFound
	}
	line := &o.Lines[i]

	remaining := line.Quantity - line.ReturnedQuantity
	if quantity > remaining {
		return nil, &ReturnQuantityExceededError{PID: pid, Requested: quantity, Remaining: remaining}
	}

	refund := line.Price.
		Mul(decimal.NewFromInt(int64(quantity))).
		Mul(one.Sub(line.Discount)).
		Mul(one.Sub(o.GlobalDiscount))

	res, err := s.gateway.Refund(ctx, o.PayID, refund, o.PaySystem)
	if err != nil {
		return nil, errors.Wrap(err, "refund")
	}
	if res.Status != payment.StatusSuccessful {
		return nil, ErrRefundFailed
	}

	line.ReturnedQuantity += quantity
	line.ReturnedAmount = line.ReturnedAmount.Add(refund)
	line.ReturnStatus = ReturnStatusReturned
	line.ReturnDates = append(line.ReturnDates, res.ReturnDate)
	o.Status = StatusReturned
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ReturnStatus lists the returned lines of an order. It returns ErrNoReturns
// when the order has no returns at all.
func (s *Service) ReturnStatus(ctx context.Context, oid string) ([]LineReturn, error) {
	o, err := s.orders.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusReturned {
		return nil, ErrNoReturns
	}

	var returns []LineReturn
	for _, l := range o.Lines {
		if l.ReturnStatus == ReturnStatusReturned {
			returns = append(returns, LineReturn{PID: l.PID, ReturnStatus: l.ReturnStatus})
		}
	}
	return returns, nil
}

// expire runs when a payment timeout fires. The conditional store update
// makes it idempotent: an order that was paid, returned or already expired
// in the meantime is left untouched.
func (s *Service) expire(oid string) {
	ctx, cancel := context.WithTimeout(context.Background(), expireDeadline)
	defer cancel()

	expired, err := s.orders.ExpireIfCreated(ctx, oid)
	if err != nil {
		s.lg.Error("expiry check failed", zap.String("oid", oid), zap.Error(err))
		return
	}
	if expired {
		s.lg.Info("order expired", zap.String("oid", oid))
	}
}
