// Command import-csv bulk-loads clients, products, or orders from CSV files.
// Files are validated concurrently; accepted records are then created through
// the ordinary repositories one at a time, so a bad record never blocks the
// rest of the batch. Files ending in .gz are decompressed on the fly.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/backoffice/internal/domain/order"
	"github.com/xenking/backoffice/internal/importer"
	"github.com/xenking/backoffice/internal/repository"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
)

func main() {
	var (
		kind        string
		header      bool
		skipDupes   bool
		databaseURL string
	)

	flag.StringVar(&kind, "kind", "", "record kind: clients, products or orders")
	flag.BoolVar(&header, "header", false, "treat the first row of each file as a header")
	flag.BoolVar(&skipDupes, "skip-duplicates", true, "skip rows whose name was already imported in this run")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	files := flag.Args()
	if kind == "" || len(files) == 0 {
		slog.Error("usage: import-csv -kind clients|products|orders [flags] file.csv [file2.csv.gz ...]")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, kind, files, header, skipDupes, databaseURL); err != nil {
		slog.Error("import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("import completed successfully")
}

func run(ctx context.Context, kind string, files []string, header, skipDupes bool, databaseURL string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	switch kind {
	case "clients":
		return importClients(ctx, pool, files, header, skipDupes)
	case "products":
		return importProducts(ctx, pool, files, header, skipDupes)
	case "orders":
		return importOrders(ctx, pool, files, header)
	default:
		return errors.Errorf("unknown kind %q", kind)
	}
}

// validateFiles runs the validator over every file concurrently and returns
// the per-file results in input order.
func validateFiles[T any](
	ctx context.Context,
	files []string,
	header bool,
	validate func(r io.Reader, header bool) *importer.Result[T],
) ([]*importer.Result[T], error) {
	results := make([]*importer.Result[T], len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, closeFn, err := openSource(path)
			if err != nil {
				return err
			}
			defer closeFn()

			results[i] = validate(r, header)
			logResult(path, results[i].TotalRows, len(results[i].Errors))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// openSource opens a CSV file, transparently decompressing .gz inputs.
func openSource(path string) (io.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %s", path)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, func() { _ = f.Close() }, nil
	}

	gz, err := pgzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	return gz, func() {
		_ = gz.Close()
		_ = f.Close()
	}, nil
}

func logResult(path string, total, failed int) {
	slog.Info("file validated",
		slog.String("file", path),
		slog.Int("rows", total),
		slog.Int("rejected", failed),
	)
}

func logRowErrors(path string, errs []importer.RowError) {
	for _, e := range errs {
		slog.Warn("row rejected",
			slog.String("file", path),
			slog.Int("row", e.Row),
			slog.String("field", e.Field),
			slog.String("value", e.Value),
			slog.String("reason", e.Reason),
		)
	}
}

// dedupe tracks names already imported in this run. The bloom filter answers
// "definitely new" cheaply; only probable hits pay for the exact set lookup.
type dedupe struct {
	filter *bloom.BloomFilter
	seen   map[string]struct{}
}

func newDedupe() *dedupe {
	return &dedupe{
		filter: bloom.NewWithEstimates(bloomCapacity, bloomFPR),
		seen:   make(map[string]struct{}),
	}
}

// isDuplicate reports whether name was added before, and records it.
func (d *dedupe) isDuplicate(name string) bool {
	if d.filter.TestString(name) {
		if _, ok := d.seen[name]; ok {
			return true
		}
	}
	d.filter.AddString(name)
	d.seen[name] = struct{}{}
	return false
}

func importClients(ctx context.Context, pool *pgxpool.Pool, files []string, header, skipDupes bool) error {
	results, err := validateFiles(ctx, files, header, importer.Clients)
	if err != nil {
		return err
	}

	repo := repository.NewClientRepository(pool)
	dd := newDedupe()
	var created, skipped, failed int

	for i, result := range results {
		logRowErrors(files[i], result.Errors)
		for j := range result.Records {
			c := &result.Records[j]
			if skipDupes && dd.isDuplicate(c.Name) {
				skipped++
				continue
			}
			if err := repo.Create(ctx, c); err != nil {
				slog.Warn("create failed", slog.String("name", c.Name), slog.String("error", err.Error()))
				failed++
				continue
			}
			created++
		}
	}

	slog.Info("clients imported",
		slog.Int("created", created),
		slog.Int("skipped", skipped),
		slog.Int("failed", failed),
	)
	return nil
}

func importProducts(ctx context.Context, pool *pgxpool.Pool, files []string, header, skipDupes bool) error {
	results, err := validateFiles(ctx, files, header, importer.Products)
	if err != nil {
		return err
	}

	repo := repository.NewProductRepository(pool)
	dd := newDedupe()
	var created, skipped, failed int

	for i, result := range results {
		logRowErrors(files[i], result.Errors)
		for j := range result.Records {
			p := &result.Records[j]
			if skipDupes && dd.isDuplicate(p.Name) {
				skipped++
				continue
			}
			if err := repo.Create(ctx, p); err != nil {
				slog.Warn("create failed", slog.String("name", p.Name), slog.String("error", err.Error()))
				failed++
				continue
			}
			created++
		}
	}

	slog.Info("products imported",
		slog.Int("created", created),
		slog.Int("skipped", skipped),
		slog.Int("failed", failed),
	)
	return nil
}

func importOrders(ctx context.Context, pool *pgxpool.Pool, files []string, header bool) error {
	results, err := validateFiles(ctx, files, header, importer.OrderDates)
	if err != nil {
		return err
	}

	repo := repository.NewOrderRepository(pool)
	var created, failed int

	for i, result := range results {
		logRowErrors(files[i], result.Errors)
		for _, date := range result.Records {
			o := order.Order{Date: date}
			if err := repo.Create(ctx, &o); err != nil {
				slog.Warn("create failed",
					slog.String("date", date.Format(time.DateOnly)),
					slog.String("error", err.Error()),
				)
				failed++
				continue
			}
			created++
		}
	}

	slog.Info("orders imported",
		slog.Int("created", created),
		slog.Int("failed", failed),
	)
	return nil
}
