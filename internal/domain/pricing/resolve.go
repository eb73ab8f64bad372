package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// UnresolvableQuantityError is returned when scanned units of a SKU remain
// but no effective rule fits them.
type UnresolvableQuantityError struct {
	SKU       string
	Remaining int
}

func (e *UnresolvableQuantityError) Error() string {
	noun := "items"
	if e.Remaining == 1 {
		noun = "item"
	}
	return fmt.Sprintf("no pricing rule covers %d %s with SKU %s", e.Remaining, noun, e.SKU)
}

// Application records how many times a tier was charged.
type Application struct {
	Rule  Rule
	Times int
}

// Resolution is the priced breakdown of all scanned units of one SKU.
type Resolution struct {
	SKU          string
	Count        int
	Applications []Application
	Subtotal     decimal.Decimal
}

// Subtotal prices count units of sku. See Resolve.
func (c *Catalog) Subtotal(sku string, count int) (decimal.Decimal, error) {
	res, err := c.Resolve(sku, count)
	if err != nil {
		return decimal.Zero, err
	}
	return res.Subtotal, nil
}

// Resolve prices count units of sku greedily: it repeatedly charges the rule
// with the largest quantity the remaining count can still cover, until
// nothing remains. It returns *UnresolvableQuantityError when units remain
// that no rule fits.
//
// The greedy choice maximizes bulk tiers first. It is not guaranteed to be the
// cheapest combination when a smaller tier is cheaper per unit than a larger
// one.
func (c *Catalog) Resolve(sku string, count int) (Resolution, error) {
	res := Resolution{
		SKU:      sku,
		Count:    count,
		Subtotal: decimal.Zero,
	}

	var rules []Rule
	if c != nil {
		rules = c.bySKU[sku]
	}

	remaining := count
	for remaining > 0 {
		rule, ok := deepestTier(rules, remaining)
		if !ok {
			return Resolution{}, &UnresolvableQuantityError{SKU: sku, Remaining: remaining}
		}

		// The same tier stays deepest until remaining drops below its quantity.
		times := remaining / rule.Quantity
		remaining -= times * rule.Quantity
		res.Subtotal = res.Subtotal.Add(rule.Price.Decimal.Mul(decimal.NewFromInt(int64(times))))
		res.Applications = append(res.Applications, Application{Rule: rule, Times: times})
	}

	return res, nil
}

// deepestTier returns the rule with the largest quantity not above remaining.
// rules must be sorted by ascending quantity.
func deepestTier(rules []Rule, remaining int) (Rule, bool) {
	for i := len(rules) - 1; i >= 0; i-- {
		if rules[i].Quantity <= remaining {
			return rules[i], true
		}
	}
	return Rule{}, false
}
