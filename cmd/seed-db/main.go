// Command seed-db runs migrations and loads the sample data set used for
// local development.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/backoffice/internal/domain/client"
	"github.com/xenking/backoffice/internal/domain/product"
	"github.com/xenking/backoffice/internal/repository"
)

type seedData struct {
	Clients []struct {
		Name    string          `json:"name"`
		Capital decimal.Decimal `json:"capital"`
		Address string          `json:"address"`
	} `json:"clients"`
	Products []struct {
		Name  string          `json:"name"`
		Price decimal.Decimal `json:"price"`
		Stock int             `json:"stock"`
	} `json:"products"`
}

func main() {
	var (
		databaseURL string
		seedFile    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedFile, "seed-file", "db/seed/data.json", "path to seed data JSON file")
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

	if err := run(ctx, databaseURL, seedFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedFile string) error {
	slog.Info("reading seed file", slog.String("path", seedFile))

	data, err := os.ReadFile(seedFile)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}

	var seed seedData
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse seed JSON")
	}

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

	clients := repository.NewClientRepository(pool)
	for _, c := range seed.Clients {
		rec := client.Client{Name: c.Name, Capital: c.Capital, Address: c.Address}
		if err := rec.Validate(); err != nil {
			return errors.Wrapf(err, "invalid seed client %q", c.Name)
		}
		if err := clients.Create(ctx, &rec); err != nil {
			return errors.Wrapf(err, "create client %q", c.Name)
		}
	}
	slog.Info("clients seeded", slog.Int("count", len(seed.Clients)))

	products := repository.NewProductRepository(pool)
	for _, p := range seed.Products {
		rec := product.Product{Name: p.Name, Price: p.Price, Stock: p.Stock}
		if err := rec.Validate(); err != nil {
			return errors.Wrapf(err, "invalid seed product %q", p.Name)
		}
		if err := products.Create(ctx, &rec); err != nil {
			return errors.Wrapf(err, "create product %q", p.Name)
		}
	}
	slog.Info("products seeded", slog.Int("count", len(seed.Products)))

	return nil
}
