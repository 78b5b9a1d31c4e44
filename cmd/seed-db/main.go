// Command seed-db loads demo products, promocodes and user carts into the
// database. It is meant for local development and integration environments.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/io25nsk/minishop/internal/domain/promo"
	"github.com/io25nsk/minishop/internal/repository"
)

type productJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
}

// seedPromocodes maps demo codes to their targets. IPHONE15 is scoped to the
// iPhone product from db/seed/products.json; MINISHOP20 discounts the whole
// order.
var seedPromocodes = map[string]struct {
	pid      string
	discount string
}{
	"IPHONE15":   {pid: "6707956239445e8693a16362", discount: "0.15"},
	"MINISHOP20": {pid: promo.TargetGlobal, discount: "0.20"},
	"AUDIO10":    {pid: "6707956239445e8693a16364", discount: "0.10"},
}

// seedUsers get an empty cart each so the cart endpoints work out of the box.
var seedUsers = []string{
	"671210a24c0b7d4a8caa715a",
	"671210a24c0b7d4a8caa715b",
}

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedPromos(ctx, pool); err != nil {
		return errors.Wrap(err, "seed promocodes")
	}
	if err := seedCarts(ctx, pool); err != nil {
		return errors.Wrap(err, "seed carts")
	}

	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products file")
	}

	const upsertSQL = `INSERT INTO products (id, name, price, category) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price, category = EXCLUDED.category`

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertSQL, p.ID, p.Name, p.Price, p.Category); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
	}

	slog.Info("products seeded", slog.Int("count", len(products)))
	return nil
}

func seedPromos(ctx context.Context, pool *pgxpool.Pool) error {
	repo := repository.NewPromoRepository(pool)

	for code, rule := range seedPromocodes {
		discount, err := decimal.NewFromString(rule.discount)
		if err != nil {
			return errors.Wrapf(err, "parse discount for code %s", code)
		}
		if err := repo.Upsert(ctx, &promo.Promocode{Code: code, PID: rule.pid, Discount: discount}); err != nil {
			return errors.Wrapf(err, "upsert promocode %s", code)
		}
	}

	slog.Info("promocodes seeded", slog.Int("count", len(seedPromocodes)))
	return nil
}

func seedCarts(ctx context.Context, pool *pgxpool.Pool) error {
	repo := repository.NewCartRepository(pool)

	for _, uid := range seedUsers {
		if _, err := repo.GetOrCreate(ctx, uid); err != nil {
			return errors.Wrapf(err, "create cart for user %s", uid)
		}
	}

	slog.Info("carts seeded", slog.Int("count", len(seedUsers)))
	return nil
}
