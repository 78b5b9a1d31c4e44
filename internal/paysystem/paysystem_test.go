package paysystem

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/io25nsk/minishop/internal/domain/payment"
)

func TestMock_Charge(t *testing.T) {
	m := NewMock(zap.NewNop())
	fixed := time.Date(2024, 10, 6, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	res, err := m.Charge(context.Background(), "oid-1", decimal.RequireFromString("99.90"), "visa")

	require.NoError(t, err)
	assert.Equal(t, payment.StatusSuccessful, res.Status)
	assert.Equal(t, fixed, res.PayDate)
	assert.Len(t, res.PayID, 32)
}

func TestMock_ChargeIssuesUniquePayIDs(t *testing.T) {
	m := NewMock(zap.NewNop())

	res1, err := m.Charge(context.Background(), "oid-1", decimal.NewFromInt(10), "mock")
	require.NoError(t, err)
	res2, err := m.Charge(context.Background(), "oid-1", decimal.NewFromInt(10), "mock")
	require.NoError(t, err)

	assert.NotEqual(t, res1.PayID, res2.PayID)
}

func TestMock_Refund(t *testing.T) {
	m := NewMock(zap.NewNop())
	fixed := time.Date(2024, 10, 6, 13, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	res, err := m.Refund(context.Background(), "pay-1", decimal.RequireFromString("85.50"), "visa")

	require.NoError(t, err)
	assert.Equal(t, payment.StatusSuccessful, res.Status)
	assert.Equal(t, fixed, res.ReturnDate)
}
