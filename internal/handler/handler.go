package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/multipriced-checkout/internal/domain/checkout"
	"github.com/xenking/multipriced-checkout/internal/domain/pricing"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// PricingService is the domain surface the HTTP API exposes.
type PricingService interface {
	PriceBasket(ctx context.Context, skus []string) (*checkout.Receipt, error)
	Catalog(ctx context.Context) (*pricing.Catalog, error)
}

// Handler serves the checkout JSON API.
type Handler struct {
	svc PricingService

	baskets      metric.Int64Counter
	unresolvable metric.Int64Counter
}

// NewHandler constructs a Handler and registers its instruments on meter.
func NewHandler(svc PricingService, meter metric.Meter) (*Handler, error) {
	baskets, err := meter.Int64Counter("checkout.baskets",
		metric.WithDescription("Baskets priced successfully"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "baskets counter")
	}
	unresolvable, err := meter.Int64Counter("checkout.unresolvable",
		metric.WithDescription("Baskets rejected because a SKU quantity had no covering rule"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "unresolvable counter")
	}

	return &Handler{
		svc:          svc,
		baskets:      baskets,
		unresolvable: unresolvable,
	}, nil
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/checkout", h.Checkout)
	mux.HandleFunc("GET /api/rules", h.ListRules)
}
