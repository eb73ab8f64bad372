package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/multipriced-checkout/internal/domain/checkout"
	"github.com/xenking/multipriced-checkout/internal/handler"
	"github.com/xenking/multipriced-checkout/internal/rulefile"
	"github.com/xenking/multipriced-checkout/internal/storage/postgres"
	"github.com/xenking/multipriced-checkout/pkg/health"
	"github.com/xenking/multipriced-checkout/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	return serve(ctx, lg, m.TracerProvider(), m.MeterProvider(), cfg)
}

func serve(ctx context.Context, lg *zap.Logger, tp trace.TracerProvider, mp metric.MeterProvider, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	ruleRepo := postgres.NewRuleRepository(pool)
	receiptRepo := postgres.NewReceiptRepository(pool)

	if cfg.RulesFile != "" {
		rules, err := rulefile.Load(cfg.RulesFile)
		if err != nil {
			return errors.Wrap(err, "load rules file")
		}
		if err := ruleRepo.Replace(ctx, rules); err != nil {
			return errors.Wrap(err, "replace rules")
		}
		lg.Info("Pricing rules replaced",
			zap.String("file", cfg.RulesFile),
			zap.Int("count", len(rules)),
		)
	}

	healthSvc := health.New()
	healthSvc.Add(health.Readiness, "postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.Add(health.Liveness, "goroutines", time.Second, health.GoroutineCountCheck(cfg.Health.MaxGoroutines))
	healthSvc.Add(health.Liveness, "gc-pause", time.Second, health.GCMaxPauseCheck(time.Second))
	healthSvc.Add(health.Readiness, "pricing-rules", 5*time.Second, func(ctx context.Context) error {
		_, err := ruleRepo.List(ctx)
		return err
	})
	healthSvc.Start(ctx, cfg.Health.Interval)
	healthSvc.SetReady(true)

	svc := checkout.NewService(ruleRepo, receiptRepo)
	h, err := handler.NewHandler(svc, mp.Meter("checkout"))
	if err != nil {
		return errors.Wrap(err, "create handler")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			otelhttp.NewMiddleware("checkout-api",
				otelhttp.WithTracerProvider(tp),
				otelhttp.WithMeterProvider(mp),
			),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.RequestID(),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
