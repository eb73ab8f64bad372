package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/multipriced-checkout/internal/domain/pricing"
)

const (
	listRulesSQL = `SELECT sku, price, quantity FROM pricing_rules ORDER BY id`

	deleteRulesSQL = `DELETE FROM pricing_rules`
)

var _ pricing.Repository = (*RuleRepository)(nil)

// RuleRepository stores the raw pricing rule set. Incomplete rules are stored
// as-is, with NULL price or quantity, and filtered later by the catalog.
type RuleRepository struct {
	pool *pgxpool.Pool
}

// NewRuleRepository returns a RuleRepository that uses the given pool.
func NewRuleRepository(pool *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{pool: pool}
}

// List returns every stored rule in insertion order.
func (r *RuleRepository) List(ctx context.Context) ([]pricing.Rule, error) {
	rows, err := r.pool.Query(ctx, listRulesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing pricing rules: %w", err)
	}
	return pgx.CollectRows(rows, scanRule)
}

// Replace swaps the stored rule set for rules in a single transaction.
func (r *RuleRepository) Replace(ctx context.Context, rules []pricing.Rule) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteRulesSQL); err != nil {
			return fmt.Errorf("deleting pricing rules: %w", err)
		}

		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"pricing_rules"},
			[]string{"sku", "price", "quantity"},
			pgx.CopyFromSlice(len(rules), func(i int) ([]any, error) {
				return []any{rules[i].SKU, rules[i].Price, nullQuantity(rules[i].Quantity)}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copying pricing rules: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replacing pricing rules: %w", err)
	}
	return nil
}

func scanRule(row pgx.CollectableRow) (pricing.Rule, error) {
	var (
		rule     pricing.Rule
		price    decimal.NullDecimal
		quantity *int64
	)
	err := row.Scan(&rule.SKU, &price, &quantity)
	rule.Price = price
	if quantity != nil {
		rule.Quantity = int(*quantity)
	}
	return rule, err
}

// nullQuantity maps the absent quantity to NULL.
func nullQuantity(q int) *int64 {
	if q == 0 {
		return nil
	}
	v := int64(q)
	return &v
}
