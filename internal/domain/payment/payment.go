// Package payment defines the external payment gateway contract.
//
// The gateway is synchronous and never returns an error for a business
// decline: a declined charge or refund comes back as StatusFailed, while a
// returned error means the call itself could not be made.
package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the gateway's verdict on a charge or refund attempt.
type Status string

const (
	StatusSuccessful Status = "Successful"
	StatusFailed     Status = "Failed"
)

// ChargeResult holds the gateway response to a successful charge call.
type ChargeResult struct {
	PayID   string
	PayDate time.Time
	Status  Status
}

// RefundResult holds the gateway response to a refund call.
type RefundResult struct {
	ReturnDate time.Time
	Status     Status
}

// Gateway is the charge/refund capability of the external payment system.
type Gateway interface {
	Charge(ctx context.Context, orderID string, amount decimal.Decimal, system string) (*ChargeResult, error)
	Refund(ctx context.Context, payID string, amount decimal.Decimal, system string) (*RefundResult, error)
}
