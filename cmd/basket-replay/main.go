// Command basket-replay prices gzip-compressed scan logs, one SKU per line,
// and reports one total per file.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/multipriced-checkout/db"
	"github.com/xenking/multipriced-checkout/internal/domain/checkout"
	"github.com/xenking/multipriced-checkout/internal/domain/pricing"
	"github.com/xenking/multipriced-checkout/internal/rulefile"
)

const progressEvery = 1_000_000

// basketResult is the priced outcome of one scan log.
type basketResult struct {
	path  string
	items int
	total checkout.Price
}

func main() {
	var (
		dataDir   string
		rulesFile string
		workers   int
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.gz scan logs (ignored when files are given as arguments)")
	flag.StringVar(&rulesFile, "rules", "", "YAML rule file (defaults to the embedded demo rules)")
	flag.IntVar(&workers, "workers", runtime.GOMAXPROCS(0), "maximum files priced concurrently")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	files := flag.Args()
	if len(files) == 0 {
		matches, err := filepath.Glob(filepath.Join(dataDir, "*.gz"))
		if err != nil {
			slog.Error("list scan logs", slog.String("error", err.Error()))
			os.Exit(1)
		}
		files = matches
	}
	if len(files) == 0 {
		slog.Error("no scan logs found", slog.String("data_dir", dataDir))
		os.Exit(1)
	}

	if err := run(ctx, os.Stdout, rulesFile, files, workers); err != nil {
		slog.Error("replay failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("replay completed successfully", slog.Int("files", len(files)))
}

func run(ctx context.Context, out io.Writer, rulesFile string, files []string, workers int) error {
	var (
		rules []pricing.Rule
		err   error
	)
	if rulesFile == "" {
		rules, err = rulefile.ParseBytes(db.SeedRules)
	} else {
		rules, err = rulefile.Load(rulesFile)
	}
	if err != nil {
		return errors.Wrap(err, "load rules")
	}

	results, err := replay(ctx, pricing.NewCatalog(rules), files, workers)
	if err != nil {
		return err
	}

	for _, r := range results {
		fmt.Fprintf(out, "%s\t%d\t%s\n", r.path, r.items, r.total.Amount.StringFixed(2))
	}
	return nil
}

// replay prices every file concurrently against one shared catalog. Results
// keep the order of files.
func replay(ctx context.Context, catalog *pricing.Catalog, files []string, workers int) ([]basketResult, error) {
	results := make([]basketResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, f := range files {
		g.Go(func() error {
			r, err := priceFile(ctx, catalog, f)
			if err != nil {
				return errors.Wrapf(err, "price %s", f)
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func priceFile(ctx context.Context, catalog *pricing.Catalog, path string) (basketResult, error) {
	co := checkout.New(catalog)
	var count int

	if err := streamGzFile(ctx, path, func(sku string) {
		co.Scan(checkout.Item{SKU: sku})
		count++
		if count%progressEvery == 0 {
			slog.Info("replay progress",
				slog.String("file", path),
				slog.Int("items", count),
			)
		}
	}); err != nil {
		return basketResult{}, err
	}

	total, err := co.Total()
	if err != nil {
		return basketResult{}, err
	}

	slog.Info("basket priced",
		slog.String("file", path),
		slog.Int("items", count),
		slog.String("total", total.Amount.StringFixed(2)),
	)
	return basketResult{path: path, items: count, total: total}, nil
}

// streamGzFile opens a gzip-compressed file and calls fn for each non-blank line.
func streamGzFile(ctx context.Context, path string, fn func(sku string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if sku := strings.TrimSpace(scanner.Text()); sku != "" {
			fn(sku)
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
