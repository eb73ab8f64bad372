//go:build integration

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/multipriced-checkout/db"
)

// Response types are defined locally to keep the tests black-box.

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type tierResponse struct {
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
	Times    int    `json:"times"`
}

type lineResponse struct {
	SKU      string         `json:"sku"`
	Count    int            `json:"count"`
	Subtotal string         `json:"subtotal"`
	Tiers    []tierResponse `json:"tiers"`
}

type receiptResponse struct {
	ID        string         `json:"id"`
	Total     string         `json:"total"`
	CreatedAt time.Time      `json:"created_at"`
	Lines     []lineResponse `json:"lines"`
}

type ruleResponse struct {
	SKU      string `json:"sku"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
}

func startPostgres(t *testing.T) string {
	t.Helper()

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "checkout",
				"POSTGRES_PASSWORD": "checkout",
				"POSTGRES_DB":       "checkout",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://checkout:checkout@%s:%s/checkout?sslmode=disable", host, port.Port())
}

func freeAddr(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

// startServer runs the full server against a fresh database seeded with the
// embedded demo rules and returns its base URL.
func startServer(t *testing.T) string {
	t.Helper()

	rulesFile := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rulesFile, db.SeedRules, 0o600))

	cfg := &Config{
		Addr:        freeAddr(t),
		DatabaseURL: startPostgres(t),
		RulesFile:   rulesFile,
		Health:      HealthConfig{Interval: time.Second, MaxGoroutines: 10000},
		Graceful:    GracefulConfig{ShutdownTimeout: 5 * time.Second},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, zaptest.NewLogger(t), tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider(), cfg)
	}()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	baseURL := "http://" + cfg.Addr
	require.Eventually(t, func() bool {
		resp, err := http.Get(baseURL + "/readyz")
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		return resp.StatusCode == http.StatusOK
	}, time.Minute, 200*time.Millisecond, "server did not become ready")

	return baseURL
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func postCheckout(t *testing.T, baseURL, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(baseURL+"/api/checkout", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestServer(t *testing.T) {
	baseURL := startServer(t)

	t.Run("livez", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/livez")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ok", decodeJSON[healthResponse](t, resp).Status)
	})

	t.Run("rules", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/api/rules")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		rules := decodeJSON[[]ruleResponse](t, resp)
		assert.Len(t, rules, 6)
		assert.Equal(t, ruleResponse{SKU: "A", Price: "15", Quantity: 1}, rules[0])
	})

	t.Run("canonical basket", func(t *testing.T) {
		resp := postCheckout(t, baseURL, `{"items":["A","A","B","B","C","A","B","B","C","A","C","A"]}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

		receipt := decodeJSON[receiptResponse](t, resp)
		assert.Equal(t, "485.35", receipt.Total)
		assert.NotEmpty(t, receipt.ID)
		assert.False(t, receipt.CreatedAt.IsZero())
		require.Len(t, receipt.Lines, 3)
		assert.Equal(t, lineResponse{
			SKU:      "B",
			Count:    4,
			Subtotal: "350",
			Tiers: []tierResponse{
				{Quantity: 3, Price: "250", Times: 1},
				{Quantity: 1, Price: "100", Times: 1},
			},
		}, receipt.Lines[1])
	})

	t.Run("empty basket", func(t *testing.T) {
		resp := postCheckout(t, baseURL, `{"items":[]}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown sku", func(t *testing.T) {
		resp := postCheckout(t, baseURL, `{"items":["Z"]}`)
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		body := decodeJSON[errorResponse](t, resp)
		assert.Equal(t, 422, body.Code)
		assert.Equal(t, "no pricing rule covers 1 item with SKU Z", body.Message)
	})
}
