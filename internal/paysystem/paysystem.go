// Package paysystem provides a stand-in payment gateway that approves every
// charge and refund. It stands where a real acquirer integration would go.
package paysystem

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/io25nsk/minishop/internal/domain/payment"
)

var _ payment.Gateway = (*Mock)(nil)

// Mock implements payment.Gateway, always successfully.
type Mock struct {
	lg *zap.Logger

	now func() time.Time
}

// NewMock creates a Mock gateway.
func NewMock(lg *zap.Logger) *Mock {
	return &Mock{lg: lg, now: time.Now}
}

// Charge approves the payment and issues a fresh pay id.
func (m *Mock) Charge(_ context.Context, orderID string, amount decimal.Decimal, system string) (*payment.ChargeResult, error) {
	u := uuid.New()
	payID := hex.EncodeToString(u[:])

	m.lg.Info("charge approved",
		zap.String("oid", orderID),
		zap.String("pay_id", payID),
		zap.String("amount", amount.String()),
		zap.String("system", system),
	)

	return &payment.ChargeResult{
		PayID:   payID,
		PayDate: m.now(),
		Status:  payment.StatusSuccessful,
	}, nil
}

// Refund approves the refund.
func (m *Mock) Refund(_ context.Context, payID string, amount decimal.Decimal, system string) (*payment.RefundResult, error) {
	m.lg.Info("refund approved",
		zap.String("pay_id", payID),
		zap.String("amount", amount.String()),
		zap.String("system", system),
	)

	return &payment.RefundResult{
		ReturnDate: m.now(),
		Status:     payment.StatusSuccessful,
	}, nil
}
