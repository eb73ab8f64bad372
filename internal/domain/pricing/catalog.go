package pricing

import (
	"cmp"
	"slices"
)

// Catalog is the normalized, read-only view of a raw rule set. It is safe for
// concurrent use.
type Catalog struct {
	raw   int
	rules []Rule
	bySKU map[string][]Rule
}

// NewCatalog normalizes rules into a Catalog. Incomplete rules are dropped and
// rules colliding on (SKU, Quantity) collapse to the cheaper one; equal prices
// keep the rule that came last. Nothing here fails: a malformed rule only
// fails to apply.
func NewCatalog(rules []Rule) *Catalog {
	effective := make(map[key]Rule, len(rules))
	for _, r := range rules {
		if !r.Valid() {
			continue
		}
		if existing, ok := effective[r.key()]; ok && existing.Price.Decimal.LessThan(r.Price.Decimal) {
			continue
		}
		effective[r.key()] = r
	}

	c := &Catalog{
		raw:   len(rules),
		rules: make([]Rule, 0, len(effective)),
		bySKU: make(map[string][]Rule),
	}
	for _, r := range effective {
		c.rules = append(c.rules, r)
	}
	slices.SortFunc(c.rules, func(a, b Rule) int {
		return cmp.Or(
			cmp.Compare(a.SKU, b.SKU),
			cmp.Compare(a.Quantity, b.Quantity),
		)
	})
	for _, r := range c.rules {
		c.bySKU[r.SKU] = append(c.bySKU[r.SKU], r)
	}

	return c
}

// Empty reports whether the catalog was built from no rules at all. A nil
// catalog is empty.
func (c *Catalog) Empty() bool {
	return c == nil || c.raw == 0
}

// EffectiveRules returns the rules that survived normalization, ordered by SKU
// and then by ascending quantity.
func (c *Catalog) EffectiveRules() []Rule {
	if c == nil {
		return nil
	}
	return slices.Clone(c.rules)
}

// RulesFor returns the effective rules of sku by ascending quantity.
func (c *Catalog) RulesFor(sku string) []Rule {
	if c == nil {
		return nil
	}
	return slices.Clone(c.bySKU[sku])
}
