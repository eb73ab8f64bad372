package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/multipriced-checkout/internal/domain/checkout"
)

const createReceiptSQL = `INSERT INTO receipts (id, lines, total, created_at)
	VALUES ($1, $2, $3, $4)`

var _ checkout.ReceiptRepository = (*ReceiptRepository)(nil)

// receiptLine is the JSONB shape of one priced SKU.
type receiptLine struct {
	SKU      string          `json:"sku"`
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tiers    []receiptTier   `json:"tiers"`
}

type receiptTier struct {
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Times    int             `json:"times"`
}

// ReceiptRepository implements checkout.ReceiptRepository backed by
// PostgreSQL.
type ReceiptRepository struct {
	pool *pgxpool.Pool
}

// NewReceiptRepository returns a ReceiptRepository that uses the given pool.
func NewReceiptRepository(pool *pgxpool.Pool) *ReceiptRepository {
	return &ReceiptRepository{pool: pool}
}

// Create persists a receipt. The priced lines are serialized to JSON for
// storage in the JSONB column.
func (r *ReceiptRepository) Create(ctx context.Context, rc *checkout.Receipt) error {
	linesJSON, err := json.Marshal(toReceiptLines(rc))
	if err != nil {
		return fmt.Errorf("marshaling receipt lines: %w", err)
	}

	_, err = r.pool.Exec(ctx, createReceiptSQL, rc.ID, linesJSON, rc.Total.Amount, rc.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating receipt %q: %w", rc.ID, err)
	}

	return nil
}

func toReceiptLines(rc *checkout.Receipt) []receiptLine {
	lines := make([]receiptLine, len(rc.Lines))
	for i, l := range rc.Lines {
		tiers := make([]receiptTier, len(l.Applications))
		for j, a := range l.Applications {
			tiers[j] = receiptTier{
				Quantity: a.Rule.Quantity,
				Price:    a.Rule.Price.Decimal,
				Times:    a.Times,
			}
		}
		lines[i] = receiptLine{
			SKU:      l.SKU,
			Count:    l.Count,
			Subtotal: l.Subtotal,
			Tiers:    tiers,
		}
	}
	return lines
}
