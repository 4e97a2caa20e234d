package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/food-orders/internal/domain/coupon"
	"github.com/xenking/food-orders/internal/storage/postgres"
)

const (
	defaultBatchSize = 500
	filterCapacity   = 1_000_000
	filterFPR        = 0.001
)

type options struct {
	dataDir      string
	pattern      string
	databaseURL  string
	batchSize    int
	workers      int
	skipExisting bool
}

func main() {
	var opts options

	flag.StringVar(&opts.dataDir, "data-dir", "data", "directory containing coupon CSV files")
	flag.StringVar(&opts.pattern, "pattern", "*.csv.gz", "glob of files to import inside data-dir")
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&opts.batchSize, "batch-size", defaultBatchSize, "coupons per upsert batch")
	flag.IntVar(&opts.workers, "workers", 4, "files parsed concurrently")
	flag.BoolVar(&opts.skipExisting, "skip-existing", false, "keep coupons stored before this run instead of overwriting them")
	flag.Parse()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if opts.batchSize <= 0 {
		opts.batchSize = defaultBatchSize
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("coupon import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon import completed successfully")
}

func run(ctx context.Context, opts options) error {
	files, err := filepath.Glob(filepath.Join(opts.dataDir, opts.pattern))
	if err != nil {
		return errors.Wrap(err, "glob data files")
	}
	if len(files) == 0 {
		slog.Info("no files to import", slog.String("dir", opts.dataDir), slog.String("pattern", opts.pattern))
		return nil
	}
	sort.Strings(files)

	slog.Info("parsing coupon files", slog.Int("files", len(files)))

	parsed, err := parseFiles(ctx, files, opts.workers)
	if err != nil {
		return errors.Wrap(err, "parse files")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := postgres.NewCouponRepository(pool)
	w := &writer{repo: repo, batchSize: opts.batchSize}
	if opts.skipExisting {
		existing := coupon.NewFilteredRepository(repo, filterCapacity, filterFPR)
		n, err := existing.Warm(ctx)
		if err != nil {
			return errors.Wrap(err, "load existing codes")
		}
		slog.Info("loaded existing codes", slog.Int("count", n))
		w.existing = existing
	}

	// Later files win when a code repeats, so write in file order.
	for i, coupons := range parsed {
		if err := w.write(ctx, coupons); err != nil {
			return errors.Wrapf(err, "write %s", files[i])
		}
	}

	slog.Info("import summary",
		slog.Int("written", w.written),
		slog.Int("kept_existing", w.skipped),
	)
	return nil
}

// parseFiles reads every file concurrently. Results keep the order of files.
func parseFiles(ctx context.Context, files []string, workers int) ([][]coupon.Coupon, error) {
	results := make([][]coupon.Coupon, len(files))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, path := range files {
		g.Go(func() error {
			coupons, rejected, err := readFile(ctx, path)
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}

			slog.Info("file parsed",
				slog.String("file", filepath.Base(path)),
				slog.Int("coupons", len(coupons)),
				slog.Int("rejected", rejected),
			)

			results[i] = coupons
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

type writer struct {
	repo      *postgres.CouponRepository
	existing  *coupon.FilteredRepository
	batchSize int

	written int
	skipped int
}

func (w *writer) write(ctx context.Context, coupons []coupon.Coupon) error {
	batch := make([]coupon.Coupon, 0, w.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := w.repo.UpsertBatch(ctx, batch); err != nil {
			return err
		}
		w.written += len(batch)
		slog.Info("write progress", slog.Int("written", w.written))
		batch = batch[:0]
		return nil
	}

	for _, c := range coupons {
		keep, err := w.keepExisting(ctx, c.Code)
		if err != nil {
			return err
		}
		if keep {
			w.skipped++
			continue
		}

		batch = append(batch, c)
		if len(batch) == w.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// keepExisting reports whether code is already stored and must not be
// overwritten. The filter answers most misses without a query.
func (w *writer) keepExisting(ctx context.Context, code string) (bool, error) {
	if w.existing == nil || !w.existing.MayContain(code) {
		return false, nil
	}
	_, err := w.existing.FindByCode(ctx, code)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, coupon.ErrNotFound):
		return false, nil
	default:
		return false, errors.Wrapf(err, "check coupon %s", code)
	}
}
