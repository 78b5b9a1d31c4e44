//go:build integration

package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/io25nsk/minishop/internal/domain/cart"
	"github.com/io25nsk/minishop/internal/domain/order"
	"github.com/io25nsk/minishop/internal/domain/product"
	"github.com/io25nsk/minishop/internal/domain/promo"
	"github.com/io25nsk/minishop/pkg/hexid"
)

var pool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image: "postgres:16-alpine",
		Env: map[string]string{
			"POSTGRES_USER":     "minishop",
			"POSTGRES_PASSWORD": "minishop",
			"POSTGRES_DB":       "minishop",
		},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(time.Minute),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		log.Fatalf("start postgres container: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			log.Printf("terminate container: %v", err)
		}
	}()

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("container port: %v", err)
	}

	databaseURL := fmt.Sprintf(
		"postgres://minishop:minishop@%s:%s/minishop?sslmode=disable",
		host, port.Port(),
	)

	pool, err = NewPool(ctx, databaseURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	if err := RunMigrations(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	return m.Run()
}

// --- Helpers ---

func seedProduct(t *testing.T, name, price string) product.Product {
	t.Helper()

	p := product.Product{
		ID:       hexid.New(),
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: "test",
	}
	_, err := pool.Exec(context.Background(),
		`INSERT INTO products (id, name, price, category) VALUES ($1, $2, $3, $4)`,
		p.ID, p.Name, p.Price, p.Category,
	)
	require.NoError(t, err)
	return p
}

func freshOrder(t *testing.T, lines ...order.Line) *order.Order {
	t.Helper()

	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.AmountWithDiscount)
	}
	return &order.Order{
		ID:                   hexid.New(),
		UID:                  hexid.New(),
		CreatedAt:            time.Now().UTC().Truncate(time.Microsecond),
		Lines:                lines,
		Promocodes:           []string{},
		GlobalDiscount:       decimal.Zero,
		GlobalDiscountAmount: decimal.Zero,
		Total:                total,
		TotalWithDiscount:    total,
		Status:               order.StatusCreated,
	}
}

func orderLine(pid, price string, quantity int) order.Line {
	p := decimal.RequireFromString(price)
	lt := p.Mul(decimal.NewFromInt(int64(quantity)))
	return order.Line{
		PID:                pid,
		Price:              p,
		Quantity:           quantity,
		LineTotal:          lt,
		Discount:           decimal.Zero,
		DiscountAmount:     decimal.Zero,
		AmountWithDiscount: lt,
		ReturnedAmount:     decimal.Zero,
	}
}

// --- Tests ---

func TestProductRepository(t *testing.T) {
	repo := NewProductRepository(pool)
	ctx := context.Background()

	p1 := seedProduct(t, "Integration Widget", "19.99")
	p2 := seedProduct(t, "Integration Gadget", "35.50")

	t.Run("get by id", func(t *testing.T) {
		got, err := repo.GetByID(ctx, p1.ID)
		require.NoError(t, err)
		assert.Equal(t, p1.Name, got.Name)
		assert.True(t, p1.Price.Equal(got.Price))
	})

	t.Run("get missing id", func(t *testing.T) {
		_, err := repo.GetByID(ctx, hexid.New())
		require.ErrorIs(t, err, product.ErrNotFound)
	})

	t.Run("get by ids skips missing", func(t *testing.T) {
		got, err := repo.GetByIDs(ctx, []string{p1.ID, p2.ID, hexid.New()})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("list contains seeded products", func(t *testing.T) {
		got, err := repo.List(ctx)
		require.NoError(t, err)
		ids := make(map[string]bool, len(got))
		for _, p := range got {
			ids[p.ID] = true
		}
		assert.True(t, ids[p1.ID])
		assert.True(t, ids[p2.ID])
	})
}

func TestPromoRepository(t *testing.T) {
	repo := NewPromoRepository(pool)
	ctx := context.Background()

	t.Run("upsert and find", func(t *testing.T) {
		p := &promo.Promocode{Code: "ITEST10", PID: promo.TargetGlobal, Discount: decimal.RequireFromString("0.10")}
		require.NoError(t, repo.Upsert(ctx, p))

		got, err := repo.FindByCode(ctx, "ITEST10")
		require.NoError(t, err)
		assert.Equal(t, promo.TargetGlobal, got.PID)
		assert.True(t, decimal.RequireFromString("0.10").Equal(got.Discount))
	})

	t.Run("upsert replaces rule", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, &promo.Promocode{
			Code: "ITEST10", PID: promo.TargetGlobal, Discount: decimal.RequireFromString("0.25"),
		}))

		got, err := repo.FindByCode(ctx, "ITEST10")
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("0.25").Equal(got.Discount))
	})

	t.Run("lookup is exact match", func(t *testing.T) {
		_, err := repo.FindByCode(ctx, "itest10")
		require.ErrorIs(t, err, promo.ErrNotFound)
	})
}

func TestCartRepository(t *testing.T) {
	repo := NewCartRepository(pool)
	ctx := context.Background()

	t.Run("get missing cart", func(t *testing.T) {
		_, err := repo.GetByUser(ctx, hexid.New())
		require.ErrorIs(t, err, cart.ErrNotFound)
	})

	t.Run("get or create is idempotent", func(t *testing.T) {
		uid := hexid.New()

		c1, err := repo.GetOrCreate(ctx, uid)
		require.NoError(t, err)
		c2, err := repo.GetOrCreate(ctx, uid)
		require.NoError(t, err)

		assert.Equal(t, c1.ID, c2.ID)
		assert.Empty(t, c1.Lines)
		assert.True(t, decimal.Zero.Equal(c1.Total))
	})

	t.Run("update persists lines", func(t *testing.T) {
		uid := hexid.New()
		c, err := repo.GetOrCreate(ctx, uid)
		require.NoError(t, err)

		price := decimal.RequireFromString("10.00")
		c.Lines = []cart.Line{{PID: hexid.New(), Price: price, Quantity: 2, LineTotal: price.Mul(decimal.NewFromInt(2))}}
		c.Total = decimal.RequireFromString("20.00")
		require.NoError(t, repo.Update(ctx, c))

		got, err := repo.GetByUser(ctx, uid)
		require.NoError(t, err)
		require.Len(t, got.Lines, 1)
		assert.Equal(t, 2, got.Lines[0].Quantity)
		assert.True(t, c.Total.Equal(got.Total))
		assert.Equal(t, c.Version, got.Version)
	})

	t.Run("stale version loses", func(t *testing.T) {
		uid := hexid.New()
		c, err := repo.GetOrCreate(ctx, uid)
		require.NoError(t, err)

		stale := *c
		require.NoError(t, repo.Update(ctx, c))

		err = repo.Update(ctx, &stale)
		require.ErrorIs(t, err, cart.ErrConcurrentModification)
	})
}

func TestOrderRepository(t *testing.T) {
	repo := NewOrderRepository(pool)
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		o := freshOrder(t, orderLine(hexid.New(), "100.00", 2))
		require.NoError(t, repo.Create(ctx, o))

		got, err := repo.GetByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, o.UID, got.UID)
		assert.Equal(t, order.StatusCreated, got.Status)
		assert.True(t, o.CreatedAt.Equal(got.CreatedAt))
		require.Len(t, got.Lines, 1)
		assert.True(t, decimal.RequireFromString("200.00").Equal(got.Lines[0].LineTotal))
		assert.Equal(t, int64(1), got.Version)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := repo.GetByID(ctx, hexid.New())
		require.ErrorIs(t, err, order.ErrNotFound)
	})

	t.Run("list by user oldest first", func(t *testing.T) {
		uid := hexid.New()
		first := freshOrder(t, orderLine(hexid.New(), "10.00", 1))
		first.UID = uid
		second := freshOrder(t, orderLine(hexid.New(), "20.00", 1))
		second.UID = uid
		second.CreatedAt = first.CreatedAt.Add(time.Second)

		require.NoError(t, repo.Create(ctx, first))
		require.NoError(t, repo.Create(ctx, second))

		got, err := repo.ListByUser(ctx, uid)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, first.ID, got[0].ID)
		assert.Equal(t, second.ID, got[1].ID)
	})

	t.Run("update persists payment state", func(t *testing.T) {
		o := freshOrder(t, orderLine(hexid.New(), "100.00", 1))
		require.NoError(t, repo.Create(ctx, o))

		payDate := time.Now().UTC().Truncate(time.Microsecond)
		o.Status = order.StatusPaid
		o.PayID = "pay-integration"
		o.PayDate = &payDate
		o.PayStatus = "Successful"
		o.PaySystem = "mock"
		require.NoError(t, repo.Update(ctx, o))

		got, err := repo.GetByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusPaid, got.Status)
		assert.Equal(t, "pay-integration", got.PayID)
		require.NotNil(t, got.PayDate)
		assert.True(t, payDate.Equal(*got.PayDate))
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("stale version loses", func(t *testing.T) {
		o := freshOrder(t, orderLine(hexid.New(), "100.00", 1))
		require.NoError(t, repo.Create(ctx, o))

		stale := *o
		o.Status = order.StatusPaid
		require.NoError(t, repo.Update(ctx, o))

		stale.Status = order.StatusExpired
		err := repo.Update(ctx, &stale)
		require.ErrorIs(t, err, order.ErrConcurrentModification)
	})

	t.Run("expire only while created", func(t *testing.T) {
		o := freshOrder(t, orderLine(hexid.New(), "100.00", 1))
		require.NoError(t, repo.Create(ctx, o))

		expired, err := repo.ExpireIfCreated(ctx, o.ID)
		require.NoError(t, err)
		assert.True(t, expired)

		// A second attempt is a no-op.
		expired, err = repo.ExpireIfCreated(ctx, o.ID)
		require.NoError(t, err)
		assert.False(t, expired)

		got, err := repo.GetByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusExpired, got.Status)
	})

	t.Run("expire paid order is a no-op", func(t *testing.T) {
		o := freshOrder(t, orderLine(hexid.New(), "100.00", 1))
		require.NoError(t, repo.Create(ctx, o))
		o.Status = order.StatusPaid
		require.NoError(t, repo.Update(ctx, o))

		expired, err := repo.ExpireIfCreated(ctx, o.ID)
		require.NoError(t, err)
		assert.False(t, expired)

		got, err := repo.GetByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusPaid, got.Status)
	})

	t.Run("return bookkeeping round-trips", func(t *testing.T) {
		pid := hexid.New()
		o := freshOrder(t, orderLine(pid, "100.00", 2))
		require.NoError(t, repo.Create(ctx, o))

		retDate := time.Now().UTC().Truncate(time.Microsecond)
		o.Status = order.StatusReturned
		o.Lines[0].ReturnedQuantity = 1
		o.Lines[0].ReturnedAmount = decimal.RequireFromString("100.00")
		o.Lines[0].ReturnStatus = order.ReturnStatusReturned
		o.Lines[0].ReturnDates = []time.Time{retDate}
		require.NoError(t, repo.Update(ctx, o))

		got, err := repo.GetByID(ctx, o.ID)
		require.NoError(t, err)
		require.Len(t, got.Lines, 1)
		assert.Equal(t, 1, got.Lines[0].ReturnedQuantity)
		assert.Equal(t, order.ReturnStatusReturned, got.Lines[0].ReturnStatus)
		require.Len(t, got.Lines[0].ReturnDates, 1)
		assert.True(t, retDate.Equal(got.Lines[0].ReturnDates[0]))
	})
}
