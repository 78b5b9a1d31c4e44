package promo

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockPromoRepo struct {
	byCode  map[string]*Promocode
	findErr error
	calls   []string
}

func (m *mockPromoRepo) FindByCode(_ context.Context, code string) (*Promocode, error) {
	m.calls = append(m.calls, code)
	if m.findErr != nil {
		return nil, m.findErr
	}
	p, ok := m.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

// --- Helpers ---

func newPromoRepo(codes ...Promocode) *mockPromoRepo {
	byCode := make(map[string]*Promocode, len(codes))
	for i := range codes {
		byCode[codes[i].Code] = &codes[i]
	}
	return &mockPromoRepo{byCode: byCode}
}

func testItems() []Item {
	return []Item{
		{PID: "p1", LineTotal: decimal.RequireFromString("100.00")},
		{PID: "p2", LineTotal: decimal.RequireFromString("50.00")},
	}
}

// --- Tests ---

func TestResolve_NoCodes(t *testing.T) {
	r := NewRepoResolver(newPromoRepo())

	res, err := r.Resolve(context.Background(), nil, testItems())

	require.NoError(t, err)
	assert.Empty(t, res.PerLine)
	assert.True(t, decimal.Zero.Equal(res.Global))
}

func TestResolve_ProductAndGlobal(t *testing.T) {
	repo := newPromoRepo(
		Promocode{Code: "TEN", PID: "p1", Discount: decimal.RequireFromString("0.10")},
		Promocode{Code: "FIVE", PID: TargetGlobal, Discount: decimal.RequireFromString("0.05")},
	)
	r := NewRepoResolver(repo)

	res, err := r.Resolve(context.Background(), []string{"TEN", "FIVE"}, testItems())

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.10").Equal(res.LineDiscount("p1")))
	assert.True(t, decimal.Zero.Equal(res.LineDiscount("p2")))
	assert.True(t, decimal.RequireFromString("0.05").Equal(res.Global))
}

func TestResolve_UnknownCodeFailsWhole(t *testing.T) {
	repo := newPromoRepo(
		Promocode{Code: "TEN", PID: "p1", Discount: decimal.RequireFromString("0.10")},
	)
	r := NewRepoResolver(repo)

	_, err := r.Resolve(context.Background(), []string{"TEN", "BOGUS"}, testItems())

	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "BOGUS")
}

func TestResolve_LastCodeWinsPerProduct(t *testing.T) {
	repo := newPromoRepo(
		Promocode{Code: "TEN", PID: "p1", Discount: decimal.RequireFromString("0.10")},
		Promocode{Code: "TWENTY", PID: "p1", Discount: decimal.RequireFromString("0.20")},
	)
	r := NewRepoResolver(repo)

	res, err := r.Resolve(context.Background(), []string{"TEN", "TWENTY"}, testItems())

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.20").Equal(res.LineDiscount("p1")))
}

func TestResolve_LastGlobalWins(t *testing.T) {
	repo := newPromoRepo(
		Promocode{Code: "FIVE", PID: TargetGlobal, Discount: decimal.RequireFromString("0.05")},
		Promocode{Code: "HALF", PID: TargetGlobal, Discount: decimal.RequireFromString("0.50")},
	)
	r := NewRepoResolver(repo)

	res, err := r.Resolve(context.Background(), []string{"FIVE", "HALF"}, testItems())

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.50").Equal(res.Global))
}

func TestResolve_CodeForAbsentProductIgnored(t *testing.T) {
	repo := newPromoRepo(
		Promocode{Code: "OTHER", PID: "p9", Discount: decimal.RequireFromString("0.30")},
	)
	r := NewRepoResolver(repo)

	res, err := r.Resolve(context.Background(), []string{"OTHER"}, testItems())

	require.NoError(t, err)
	assert.Empty(t, res.PerLine)
	assert.True(t, decimal.Zero.Equal(res.Global))
}

func TestResolve_RepoError(t *testing.T) {
	repo := &mockPromoRepo{findErr: errors.New("db down")}
	r := NewRepoResolver(repo)

	_, err := r.Resolve(context.Background(), []string{"TEN"}, testItems())

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "TEN")
}
