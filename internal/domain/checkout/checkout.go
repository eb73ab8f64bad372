package checkout

import (
	"cmp"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/xenking/multipriced-checkout/internal/domain/pricing"
)

// Item is a scanned unit, identified only by its SKU.
type Item struct {
	SKU string
}

// Price is an exact, non-negative amount.
type Price struct {
	Amount decimal.Decimal
}

// SKUCount is the number of scanned units of one SKU.
type SKUCount struct {
	SKU   string
	Count int
}

// Aggregate counts scanned items per SKU. The result is ordered by SKU.
func Aggregate(items []Item) []SKUCount {
	counts := make(map[string]int)
	for _, item := range items {
		counts[item.SKU]++
	}

	out := make([]SKUCount, 0, len(counts))
	for sku, n := range counts {
		out = append(out, SKUCount{SKU: sku, Count: n})
	}
	slices.SortFunc(out, func(a, b SKUCount) int {
		return cmp.Compare(a.SKU, b.SKU)
	})
	return out
}

// Checkout accumulates scanned items and prices them against a Catalog that
// is fixed at construction.
type Checkout struct {
	catalog *pricing.Catalog

	mu    sync.Mutex
	items []Item
}

// New creates a Checkout priced by catalog. A nil catalog is allowed and
// prices every basket at zero.
func New(catalog *pricing.Catalog) *Checkout {
	return &Checkout{catalog: catalog}
}

// Scan appends item to the scanned sequence.
func (c *Checkout) Scan(item Item) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = append(c.items, item)
}

// Items returns a copy of everything scanned so far, in scan order.
func (c *Checkout) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.items)
}

// Total prices everything scanned so far. See Receipt.
func (c *Checkout) Total() (Price, error) {
	r, err := c.Receipt()
	if err != nil {
		return Price{}, err
	}
	return r.Total, nil
}

// Receipt prices everything scanned so far and returns the per-SKU breakdown.
//
// An absent or empty catalog yields a zero total whatever was scanned. An
// *pricing.UnresolvableQuantityError is returned unchanged when any SKU
// cannot be fully priced.
func (c *Checkout) Receipt() (Receipt, error) {
	zero := Receipt{Total: Price{Amount: decimal.Zero}}
	if c.catalog.Empty() {
		return zero, nil
	}

	counts := Aggregate(c.Items())
	if len(counts) == 0 {
		return zero, nil
	}

	r := Receipt{
		Lines: make([]pricing.Resolution, 0, len(counts)),
		Total: Price{Amount: decimal.Zero},
	}
	for _, sc := range counts {
		if sc.Count <= 0 {
			continue
		}
		line, err := c.catalog.Resolve(sc.SKU, sc.Count)
		if err != nil {
			return Receipt{}, err
		}
		r.Lines = append(r.Lines, line)
		r.Total.Amount = r.Total.Amount.Add(line.Subtotal)
	}

	return r, nil
}
