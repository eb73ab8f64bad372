// Command seed-rules replaces the stored pricing catalog with a YAML rule file.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/multipriced-checkout/db"
	"github.com/xenking/multipriced-checkout/internal/domain/pricing"
	"github.com/xenking/multipriced-checkout/internal/rulefile"
	"github.com/xenking/multipriced-checkout/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		rulesFile   string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&rulesFile, "rules-file", "", "path to a YAML rule file (defaults to the embedded demo rules)")
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

	if err := run(ctx, databaseURL, rulesFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, rulesFile string) error {
	rules, err := readRules(rulesFile)
	if err != nil {
		return errors.Wrap(err, "read rules")
	}

	effective := pricing.NewCatalog(rules).EffectiveRules()
	if dropped := len(rules) - len(effective); dropped > 0 {
		slog.Warn("rule file contains malformed or shadowed rules",
			slog.Int("rules", len(rules)),
			slog.Int("effective", len(effective)),
		)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("replacing pricing rules", slog.Int("count", len(rules)))

	if err := postgres.NewRuleRepository(pool).Replace(ctx, rules); err != nil {
		return errors.Wrap(err, "replace rules")
	}

	return nil
}

func readRules(path string) ([]pricing.Rule, error) {
	if path == "" {
		slog.Info("using embedded demo rules")
		return rulefile.ParseBytes(db.SeedRules)
	}
	slog.Info("reading rule file", slog.String("path", path))
	return rulefile.Load(path)
}
