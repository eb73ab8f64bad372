// Command checkout-demo scans a basket against a rule set and prints the total.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-faster/errors"

	"github.com/xenking/multipriced-checkout/db"
	"github.com/xenking/multipriced-checkout/internal/domain/checkout"
	"github.com/xenking/multipriced-checkout/internal/domain/pricing"
	"github.com/xenking/multipriced-checkout/internal/rulefile"
)

var defaultScan = []string{"A", "A", "B", "B", "C", "A", "B", "B", "C", "A", "C", "A"}

func main() {
	var (
		rulesFile string
		verbose   bool
	)

	flag.StringVar(&rulesFile, "rules", "", "YAML rule file (defaults to the built-in demo rules)")
	flag.BoolVar(&verbose, "v", false, "print the per-SKU breakdown")
	flag.Parse()

	skus := flag.Args()
	if len(skus) == 0 {
		skus = defaultScan
	}

	if err := run(os.Stdout, rulesFile, skus, verbose); err != nil {
		slog.Error("checkout failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(out io.Writer, rulesFile string, skus []string, verbose bool) error {
	catalog, err := loadCatalog(rulesFile)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}

	co := checkout.New(catalog)
	for _, sku := range skus {
		co.Scan(checkout.Item{SKU: sku})
	}

	receipt, err := co.Receipt()
	if err != nil {
		return errors.Wrap(err, "price basket")
	}

	if verbose {
		for _, line := range receipt.Lines {
			fmt.Fprintf(out, "%s x%d: %s\n", line.SKU, line.Count, line.Subtotal.StringFixed(2))
			for _, a := range line.Applications {
				fmt.Fprintf(out, "  %d x (%d for %s)\n", a.Times, a.Rule.Quantity, a.Rule.Price.Decimal.StringFixed(2))
			}
		}
	}
	fmt.Fprintf(out, "Total checkout: %s\n", receipt.Total.Amount.StringFixed(2))
	return nil
}

func loadCatalog(path string) (*pricing.Catalog, error) {
	var (
		rules []pricing.Rule
		err   error
	)
	if path == "" {
		rules, err = rulefile.ParseBytes(db.SeedRules)
	} else {
		rules, err = rulefile.Load(path)
	}
	if err != nil {
		return nil, err
	}
	return pricing.NewCatalog(rules), nil
}
