package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/multipriced-checkout/internal/domain/checkout"
	"github.com/xenking/multipriced-checkout/internal/domain/pricing"
)

// --- Mock implementations ---

type mockRuleRepo struct {
	rules []pricing.Rule
	err   error
}

func (m *mockRuleRepo) List(_ context.Context) ([]pricing.Rule, error) {
	return m.rules, m.err
}

type mockReceiptRepo struct {
	err error
}

func (m *mockReceiptRepo) Create(_ context.Context, r *checkout.Receipt) error {
	r.CreatedAt = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	return m.err
}

// --- Helpers ---

func rule(sku, price string, quantity int) pricing.Rule {
	return pricing.NewRule(sku, decimal.RequireFromString(price), quantity)
}

func newTestServer(t *testing.T, rules *mockRuleRepo, receipts *mockReceiptRepo) http.Handler {
	t.Helper()

	h, err := NewHandler(checkout.NewService(rules, receipts), noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// --- Tests ---

func TestCheckout(t *testing.T) {
	butter := &mockRuleRepo{rules: []pricing.Rule{rule("BUTTER", "75", 1), rule("BUTTER", "80", 2)}}

	tests := []struct {
		name     string
		rules    *mockRuleRepo
		receipts *mockReceiptRepo
		body     string
		wantCode int
		wantBody string
	}{
		{
			name:     "malformed json returns 400",
			rules:    butter,
			receipts: &mockReceiptRepo{},
			body:     `{"items":`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing items returns 400",
			rules:    butter,
			receipts: &mockReceiptRepo{},
			body:     `{}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"code":400,"message":"items required"}`,
		},
		{
			name:     "empty items returns 400",
			rules:    butter,
			receipts: &mockReceiptRepo{},
			body:     `{"items":[]}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"code":400,"message":"items required"}`,
		},
		{
			name:     "non-string item returns 400",
			rules:    butter,
			receipts: &mockReceiptRepo{},
			body:     `{"items":[1]}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unresolvable quantity returns 422",
			rules:    &mockRuleRepo{rules: []pricing.Rule{rule("BUTTER", "80", 2)}},
			receipts: &mockReceiptRepo{},
			body:     `{"items":["BUTTER"]}`,
			wantCode: http.StatusUnprocessableEntity,
			wantBody: `{"code":422,"message":"no pricing rule covers 1 item with SKU BUTTER"}`,
		},
		{
			name:     "rule store failure returns 500",
			rules:    &mockRuleRepo{err: errors.New("db down")},
			receipts: &mockReceiptRepo{},
			body:     `{"items":["BUTTER"]}`,
			wantCode: http.StatusInternalServerError,
			wantBody: `{"code":500,"message":"internal server error"}`,
		},
		{
			name:     "receipt store failure returns 500",
			rules:    butter,
			receipts: &mockReceiptRepo{err: errors.New("db write failed")},
			body:     `{"items":["BUTTER"]}`,
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newTestServer(t, tt.rules, tt.receipts), http.MethodPost, "/api/checkout", tt.body)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestCheckout_Receipt(t *testing.T) {
	rules := &mockRuleRepo{rules: []pricing.Rule{
		rule("BUTTER", "75", 1),
		rule("BUTTER", "80", 2),
		rule("C", "23.45", 1),
	}}
	srv := newTestServer(t, rules, &mockReceiptRepo{})

	w := do(srv, http.MethodPost, "/api/checkout", `{"items":["BUTTER","C","BUTTER","BUTTER"],"note":"ignored"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := w.Body.String()
	assert.Contains(t, body, `"total":"178.45"`)
	assert.Contains(t, body, `"created_at":"2025-06-15T12:00:00Z"`)
	assert.Contains(t, body, `{"sku":"BUTTER","count":3,"subtotal":"155","tiers":[{"quantity":2,"price":"80","times":1},{"quantity":1,"price":"75","times":1}]}`)
	assert.Contains(t, body, `{"sku":"C","count":1,"subtotal":"23.45","tiers":[{"quantity":1,"price":"23.45","times":1}]}`)
}

func TestCheckout_BodyTooLarge(t *testing.T) {
	srv := newTestServer(t, &mockRuleRepo{}, &mockReceiptRepo{})

	body := `{"items":["` + strings.Repeat("A", maxBodyBytes) + `"]}`
	w := do(srv, http.MethodPost, "/api/checkout", body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.JSONEq(t, `{"code":413,"message":"request body too large"}`, w.Body.String())
}

func TestCheckout_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &mockRuleRepo{}, &mockReceiptRepo{})

	w := do(srv, http.MethodGet, "/api/checkout", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestListRules(t *testing.T) {
	t.Run("effective rules only", func(t *testing.T) {
		rules := &mockRuleRepo{rules: []pricing.Rule{
			rule("B", "250", 3),
			rule("A", "15.00", 1),
			rule("A", "14.00", 1),
			{SKU: "Z", Quantity: 1},
		}}
		srv := newTestServer(t, rules, &mockReceiptRepo{})

		w := do(srv, http.MethodGet, "/api/rules", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[
			{"sku":"A","price":"14","quantity":1},
			{"sku":"B","price":"250","quantity":3}
		]`, w.Body.String())
	})

	t.Run("store failure returns 500", func(t *testing.T) {
		srv := newTestServer(t, &mockRuleRepo{err: errors.New("db down")}, &mockReceiptRepo{})

		w := do(srv, http.MethodGet, "/api/rules", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("empty catalog", func(t *testing.T) {
		srv := newTestServer(t, &mockRuleRepo{}, &mockReceiptRepo{})

		w := do(srv, http.MethodGet, "/api/rules", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})
}
