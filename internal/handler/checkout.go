package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/multipriced-checkout/internal/domain/checkout"
	"github.com/xenking/multipriced-checkout/internal/domain/pricing"
)

// Checkout prices the posted basket and responds with the stored receipt.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}

	skus, err := decodeCheckoutRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	receipt, err := h.svc.PriceBasket(ctx, skus)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	h.baskets.Add(ctx, 1)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeReceipt(e, receipt)
	})
}

// writeCheckoutError maps domain errors to API error responses.
func (h *Handler) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, checkout.ErrEmptyBasket) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var uqErr *pricing.UnresolvableQuantityError
	if errors.As(err, &uqErr) {
		h.unresolvable.Add(r.Context(), 1, metric.WithAttributes(attribute.String("sku", uqErr.SKU)))
		writeError(w, http.StatusUnprocessableEntity, uqErr.Error())
		return
	}

	zctx.From(r.Context()).Error("Price basket failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// ListRules responds with the effective rules of the stored catalog.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.svc.Catalog(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("Load catalog failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeRules(e, catalog.EffectiveRules())
	})
}
