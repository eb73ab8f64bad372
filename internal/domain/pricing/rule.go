package pricing

import (
	"context"

	"github.com/shopspring/decimal"
)

// Rule charges Price for every block of Quantity units of SKU.
//
// A rule with an invalid Price or a zero Quantity is incomplete and never
// takes part in resolution. A negative Price or Quantity is malformed and
// treated the same way, so every total built from effective rules is
// non-negative.
type Rule struct {
	SKU      string
	Price    decimal.NullDecimal
	Quantity int
}

// NewRule returns a complete rule.
func NewRule(sku string, price decimal.Decimal, quantity int) Rule {
	return Rule{
		SKU:      sku,
		Price:    decimal.NewNullDecimal(price),
		Quantity: quantity,
	}
}

// Valid reports whether the rule can price anything: Price is present and
// non-negative, Quantity is positive.
func (r Rule) Valid() bool {
	if !r.Price.Valid || r.Price.Decimal.IsNegative() {
		return false
	}
	return r.Quantity > 0
}

// key identifies the effective rule slot a rule competes for.
type key struct {
	sku      string
	quantity int
}

func (r Rule) key() key {
	return key{sku: r.SKU, quantity: r.Quantity}
}

// Repository provides the raw rule set a Catalog is built from.
type Repository interface {
	List(ctx context.Context) ([]Rule, error)
}
