package checkout

import (
	"context"
	"time"

	"github.com/xenking/multipriced-checkout/internal/domain/pricing"
)

// Receipt is a priced basket.
type Receipt struct {
	ID        string
	Lines     []pricing.Resolution
	Total     Price
	CreatedAt time.Time
}

// ReceiptRepository defines persistence operations for receipts.
type ReceiptRepository interface {
	Create(ctx context.Context, r *Receipt) error
}
