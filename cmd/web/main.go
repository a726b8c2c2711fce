package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"historia-diaria/internal/bootstrap"
	"historia-diaria/internal/config"
	"historia-diaria/internal/domain/entity"
	hhttp "historia-diaria/internal/handler/http"
	hauth "historia-diaria/internal/handler/http/auth"
	hfact "historia-diaria/internal/handler/http/fact"
	"historia-diaria/internal/handler/http/requestid"
	"historia-diaria/internal/handler/http/respond"
	"historia-diaria/internal/infra/cache"
	"historia-diaria/internal/infra/db"
	"historia-diaria/internal/observability/metrics"
	"historia-diaria/internal/observability/tracing"
	factUC "historia-diaria/internal/usecase/fact"
	envcfg "historia-diaria/pkg/config"
	"historia-diaria/pkg/security/csp"
)

func main() {
	logger := bootstrap.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing := tracing.Init(envcfg.GetEnvFloat("OTEL_SAMPLE_RATIO", 0.1))
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = shutdownTracing(sctx)
	}()

	// Credentials are checked before the database is opened.
	aiCfg, err := config.LoadAIConfig()
	if err != nil {
		logger.Info("admin generation disabled", slog.String("reason", respond.SanitizeError(err)))
		aiCfg = nil
	}

	store, err := bootstrap.OpenStore(ctx, logger)
	if err != nil {
		logger.Error("failed to open database", slog.String("error", respond.SanitizeError(err)))
		os.Exit(bootstrap.ExitCode(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	mode := displayMode()
	components := setupServer(ctx, logger, store, mode, aiCfg)
	defer components.Close()

	go metrics.CollectDBStats(ctx, store.DB, 15*time.Second)
	if err := db.RefreshFactGauges(ctx, store.Facts, mode); err != nil {
		logger.Warn("failed to refresh fact gauges", slog.Any("error", err))
	}

	runServer(ctx, cancel, logger, components)
}

// displayMode picks the table the site reads: development reads the test
// table, everything else reads production.
func displayMode() entity.RunMode {
	if envcfg.GetEnvString("APP_ENV", "production") == "development" {
		return entity.RunModeTest
	}
	return entity.RunModeProduction
}

// getVersion returns the application version from environment or default.
func getVersion() string {
	return envcfg.GetEnvString("VERSION", "dev")
}

// ServerComponents holds components needed for server operation and cleanup.
type ServerComponents struct {
	Handler     http.Handler
	Addr        string
	RateLimiter *hhttp.RateLimiter
	Cache       *cache.TodayCache
}

// Close releases the optional cache connection.
func (c *ServerComponents) Close() {
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
}

// setupServer configures and returns the HTTP handler with all routes and middleware.
func setupServer(ctx context.Context, logger *slog.Logger, store *bootstrap.Store, mode entity.RunMode, aiCfg *config.AIConfig) *ServerComponents {
	components := &ServerComponents{
		Addr: fmt.Sprintf(":%d", envcfg.GetEnvInt("PORT", 8080)),
	}

	svc := &factUC.Service{Repo: store.Facts}
	if cacheCfg := cache.LoadConfig(); cacheCfg.Addr != "" {
		todayCache, err := cache.New(ctx, cacheCfg)
		if err != nil {
			// Reads fall through to the database.
			logger.Warn("today cache unavailable, continuing without it", slog.Any("error", err))
		} else {
			svc.Cache = todayCache
			components.Cache = todayCache
			logger.Info("today cache enabled", slog.String("addr", cacheCfg.Addr))
		}
	}

	loc, err := time.LoadLocation(envcfg.GetEnvString("SITE_TIMEZONE", "Europe/Madrid"))
	if err != nil {
		logger.Warn("invalid SITE_TIMEZONE, using UTC", slog.Any("error", err))
		loc = time.UTC
	}
	factCfg := hfact.Config{
		Mode:         mode,
		Location:     loc,
		SiteURL:      envcfg.GetEnvString("SITE_URL", "http://localhost:8080"),
		ArchiveLimit: envcfg.GetEnvInt("ARCHIVE_LIMIT", factUC.MaxLimit),
	}

	mux := http.NewServeMux()
	gen, admin := setupAdmin(ctx, logger, store, aiCfg)
	hfact.Register(mux, svc, factCfg, gen, admin)

	health := &hhttp.HealthHandler{DB: store.Breaker, Version: getVersion()}
	if components.Cache != nil {
		health.Cache = components.Cache
	}
	mux.Handle("GET /health", health)
	mux.Handle("GET /ready", &hhttp.ReadyHandler{DB: store.Breaker})
	mux.Handle("GET /live", hhttp.LiveHandler{})
	mux.Handle("GET /metrics", hhttp.MetricsHandler())

	components.RateLimiter = hhttp.NewRateLimiter(
		envcfg.GetEnvInt("RATE_LIMIT_REQUESTS", 120),
		envcfg.GetEnvDuration("RATE_LIMIT_WINDOW", time.Minute))
	components.RateLimiter.TrustProxy = envcfg.GetEnvBool("TRUST_PROXY", false)

	components.Handler = applyMiddleware(logger, mux, components.RateLimiter,
		envcfg.GetEnvDuration("REQUEST_TIMEOUT", 30*time.Second))

	logger.Info("display site configured",
		slog.String("mode", mode.String()),
		slog.String("table", mode.Table()),
		slog.String("timezone", loc.String()),
		slog.Bool("admin_enabled", gen != nil))
	return components
}

// setupAdmin builds the manual generation endpoint. It stays unmounted when
// JWT_SECRET or the AI provider (aiCfg nil) is not configured.
func setupAdmin(ctx context.Context, logger *slog.Logger, store *bootstrap.Store, aiCfg *config.AIConfig) (hfact.Generator, func(http.Handler) http.Handler) {
	if aiCfg == nil {
		return nil, nil
	}
	authCfg, err := hauth.LoadConfig()
	if err != nil {
		logger.Info("admin endpoint disabled", slog.String("reason", err.Error()))
		return nil, nil
	}
	driver, err := bootstrap.Pipeline(ctx, logger, aiCfg, store.Facts)
	if err != nil {
		logger.Warn("admin endpoint disabled, generation pipeline unavailable",
			slog.String("error", respond.SanitizeError(err)))
		return nil, nil
	}
	return driver, hauth.RequireAdmin(authCfg.Secret)
}

// applyMiddleware wraps the handler with the middleware chain.
// Order: Request ID → Tracing → Logging → Recovery → Security headers →
// Input validation → Rate limit → Timeout → Metrics. The admin generation
// route skips the timeout because a pipeline run outlives any page request.
func applyMiddleware(logger *slog.Logger, mux *http.ServeMux, limiter *hhttp.RateLimiter, timeout time.Duration) http.Handler {
	routed := hhttp.MetricsMiddleware(mux)

	outer := http.NewServeMux()
	outer.Handle("/api/admin/", routed)
	outer.Handle("/", hhttp.Timeout(timeout)(routed))

	return hhttp.Chain(outer,
		requestid.Middleware,
		tracing.Middleware,
		hhttp.Logging(logger),
		hhttp.Recover(logger),
		hhttp.SecurityHeaders(csp.PagePolicy().Build()),
		hhttp.InputValidation(),
		limiter.Limit,
	)
}

// runServer starts the HTTP server and handles graceful shutdown.
func runServer(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger, components *ServerComponents) {
	cleanupInterval := envcfg.GetEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute)
	go components.RateLimiter.RunCleanup(ctx, cleanupInterval, 2*cleanupInterval)

	srv := &http.Server{
		Addr:              components.Addr,
		Handler:           components.Handler,
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.String("addr", components.Addr),
			slog.String("version", getVersion()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		logger.Info("shutting down server...")
	case err := <-errCh:
		logger.Error("server failed", slog.Any("error", err))
	}

	// Cancel background goroutines (rate limit cleanup, pool stats)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
