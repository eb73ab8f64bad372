package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/multipriced-checkout/internal/domain/pricing"
)

// ErrEmptyBasket is returned when a basket with no items is priced.
var ErrEmptyBasket = errors.New("items required")

// Service prices baskets against the stored rule catalog and keeps a receipt
// of each one.
type Service struct {
	rules    pricing.Repository
	receipts ReceiptRepository
	now      func() time.Time
}

// NewService creates a Service with the required domain dependencies.
func NewService(rules pricing.Repository, receipts ReceiptRepository) *Service {
	return &Service{
		rules:    rules,
		receipts: receipts,
		now:      time.Now,
	}
}

// Catalog loads the stored rules and normalizes them.
func (s *Service) Catalog(ctx context.Context) (*pricing.Catalog, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list rules")
	}
	return pricing.NewCatalog(rules), nil
}

// PriceBasket scans skus in order through a fresh Checkout, persists the
// resulting receipt and returns it.
func (s *Service) PriceBasket(ctx context.Context, skus []string) (*Receipt, error) {
	if len(skus) == 0 {
		return nil, ErrEmptyBasket
	}

	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	co := New(catalog)
	for _, sku := range skus {
		co.Scan(Item{SKU: sku})
	}

	r, err := co.Receipt()
	if err != nil {
		return nil, errors.Wrap(err, "price basket")
	}

	r.ID = uuid.New().String()
	r.CreatedAt = s.now().UTC()
	if err := s.receipts.Create(ctx, &r); err != nil {
		return nil, errors.Wrap(err, "create receipt")
	}

	return &r, nil
}
