// Package rulefile reads pricing rule sets from YAML.
//
// A rule file looks like:
//
//	rules:
//	  - sku: A
//	    price: "15.00"
//	    quantity: 1
//
// price and quantity may be omitted; such rules are kept and left for the
// catalog to discard.
package rulefile

import (
	"bytes"
	"io"
	"os"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/xenking/multipriced-checkout/internal/domain/pricing"
)

type file struct {
	Rules []entry `yaml:"rules"`
}

type entry struct {
	SKU      string           `yaml:"sku"`
	Price    *decimal.Decimal `yaml:"price"`
	Quantity *int             `yaml:"quantity"`
}

// Parse decodes a rule file.
func Parse(r io.Reader) ([]pricing.Rule, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "decode rules")
	}

	rules := make([]pricing.Rule, len(f.Rules))
	for i, e := range f.Rules {
		if e.SKU == "" {
			return nil, errors.Errorf("rule %d: sku is required", i+1)
		}
		rules[i] = pricing.Rule{SKU: e.SKU}
		if e.Price != nil {
			rules[i].Price = decimal.NewNullDecimal(*e.Price)
		}
		if e.Quantity != nil {
			rules[i].Quantity = *e.Quantity
		}
	}
	return rules, nil
}

// ParseBytes decodes a rule file held in memory.
func ParseBytes(data []byte) ([]pricing.Rule, error) {
	return Parse(bytes.NewReader(data))
}

// Load reads and decodes the rule file at path.
func Load(path string) ([]pricing.Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	rules, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return rules, nil
}
