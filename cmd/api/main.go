// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carterperez-dev/ledger-backend/internal/admin"
	"github.com/carterperez-dev/ledger-backend/internal/auth"
	"github.com/carterperez-dev/ledger-backend/internal/billing"
	"github.com/carterperez-dev/ledger-backend/internal/config"
	"github.com/carterperez-dev/ledger-backend/internal/core"
	"github.com/carterperez-dev/ledger-backend/internal/customer"
	"github.com/carterperez-dev/ledger-backend/internal/customfield"
	"github.com/carterperez-dev/ledger-backend/internal/dashboard"
	"github.com/carterperez-dev/ledger-backend/internal/export"
	"github.com/carterperez-dev/ledger-backend/internal/health"
	"github.com/carterperez-dev/ledger-backend/internal/middleware"
	"github.com/carterperez-dev/ledger-backend/internal/migrate"
	"github.com/carterperez-dev/ledger-backend/internal/ratelimit"
	"github.com/carterperez-dev/ledger-backend/internal/server"
	"github.com/carterperez-dev/ledger-backend/internal/subscription"
	"github.com/carterperez-dev/ledger-backend/internal/transaction"
	"github.com/carterperez-dev/ledger-backend/internal/user"
)

const (
	drainDelay         = 5 * time.Second
	limiterSweep       = time.Minute
	exportsPerHour     = 30
	tokenPurgeInterval = time.Hour
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.AutoMigrate {
		if err := migrate.Up(ctx, db.DB, logger); err != nil {
			return err
		}
	}

	rdb, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)
	if err := db.RegisterPoolMetrics(prometheus.DefaultRegisterer); err != nil {
		return err
	}
	if err := rdb.RegisterPoolMetrics(prometheus.DefaultRegisterer); err != nil {
		return err
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	memoryLimiter := ratelimit.NewMemoryLimiter(limiterSweep)
	defer memoryLimiter.Close()

	onLimiterError := func(err error) {
		logger.Warn("redis rate limiter unavailable, using in-process counters",
			"error", err,
		)
	}

	globalLimiter := ratelimit.NewFallback(
		ratelimit.NewGCRALimiter(rdb.Client, cfg.RateLimit.Requests),
		memoryLimiter,
		onLimiterError,
	)

	// exports are counted per hour, so they need the fixed window rather
	// than the global GCRA bucket
	exportLimiter := ratelimit.NewFallback(
		ratelimit.NewRedisLimiter(rdb.Client),
		memoryLimiter,
		onLimiterError,
	)

	var authLimiter ratelimit.Limiter = memoryLimiter
	if cfg.RateLimit.Backend == "redis" {
		authLimiter = ratelimit.NewFallback(
			ratelimit.NewRedisLimiter(rdb.Client),
			memoryLimiter,
			onLimiterError,
		)
	}

	var features subscription.FeatureTable
	if cfg.Plans.Source == "config" {
		features = subscription.NewStaticFeatureTable(cfg.Plans.Features)
	} else {
		features = subscription.NewFeatureRepository(db.DB)
	}
	subRepo := subscription.NewRepository(db.DB)
	gate := subscription.NewGate(subRepo, features)
	subHandler := subscription.NewHandler(gate, features)

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc)

	authSvc := auth.NewService(auth.ServiceConfig{
		Repo:   auth.NewRepository(db.DB),
		JWT:    jwtManager,
		Users:  userSvc,
		Redis:  rdb.Client,
		OTP:    auth.NewOTPStore(rdb.Client, cfg.OTP),
		Mailer: auth.NewLogMailer(logger),
		OAuth:  auth.NewOAuthClient(cfg.OAuth),
		Logger: logger,
	})
	authHandler := auth.NewHandler(authSvc, auth.NewCookies(cfg.Session), cfg.App.BaseURL)

	var provider billing.Provider
	stripeProvider, err := billing.NewStripeProvider(cfg.Billing, logger)
	switch {
	case err == nil:
		provider = stripeProvider
		logger.Info("stripe billing enabled")
	case errors.Is(err, billing.ErrNotConfigured):
		logger.Warn("stripe billing not configured, checkout and webhooks answer 503")
	default:
		return err
	}

	prices := billing.NewPriceCatalog(cfg.Billing.Prices)
	checkoutSvc := billing.NewCheckoutService(
		provider,
		subRepo,
		userSvc,
		prices,
		billing.CheckoutConfig{
			SuccessURL: cfg.Billing.SuccessURL,
			CancelURL:  cfg.Billing.CancelURL,
		},
		logger,
	)
	receiver := billing.NewReceiver(provider, subRepo, prices, logger)
	billingHandler := billing.NewHandler(checkoutSvc, receiver)

	fieldSvc := customfield.NewService(customfield.NewRepository(db.DB), gate)
	fieldHandler := customfield.NewHandler(fieldSvc)

	customerSvc := customer.NewService(customer.NewRepository(db.DB), fieldSvc, userSvc)
	customerHandler := customer.NewHandler(customerSvc)

	txSvc := transaction.NewService(transaction.NewRepository(db.DB), customerSvc, fieldSvc)
	txHandler := transaction.NewHandler(txSvc)

	exportHandler := export.NewHandler(export.NewService(customerSvc, txSvc, fieldSvc))

	dashboardHandler := dashboard.NewHandler(
		dashboard.NewService(dashboard.NewRepository(db.DB), txSvc),
	)

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: rdb},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		Repo:          admin.NewRepository(db.DB),
		Subscriptions: subRepo,
		DBPing:        db.Ping,
		DBStats:       db.Stats,
		RedisPing:     rdb.Ping,
		RedisStats:    rdb.PoolStats,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.Metrics)
	router.Use(middleware.RequestID)
	router.Use(middleware.Tracing)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.SecurityHeaders(cfg.App.Environment == "production"))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	authenticator := middleware.Authenticator(authSvc, middleware.AuthConfig{
		CookieName: cfg.Session.AccessCookie,
	})
	adminOnly := middleware.RequireAdmin
	requireFeature := gate.Middleware

	globalLimit := middleware.RateLimit(globalLimiter, middleware.RateLimitConfig{
		Bucket:   "api",
		Limit:    ratelimit.Limit{MaxRequests: cfg.RateLimit.Requests, Window: cfg.RateLimit.Window},
		FailOpen: true,
		BypassFunc: func(r *http.Request) bool {
			return r.URL.Path == "/api/stripe/webhook"
		},
	})
	authLimit := middleware.RateLimit(authLimiter, middleware.RateLimitConfig{
		Bucket:   "auth",
		Limit:    ratelimit.Limit{MaxRequests: cfg.RateLimit.AuthRequests, Window: cfg.RateLimit.AuthWindow},
		FailOpen: true,
	})
	exportLimit := middleware.RateLimit(exportLimiter, middleware.RateLimitConfig{
		Bucket:   "export",
		Limit:    ratelimit.PerHour(exportsPerHour),
		KeyFunc:  middleware.KeyByUser,
		FailOpen: true,
	})

	router.Route("/api", func(r chi.Router) {
		r.Use(globalLimit)

		authHandler.RegisterRoutes(r, authenticator, authLimit)
		userHandler.RegisterRoutes(r, authenticator)
		subHandler.RegisterRoutes(r, authenticator)
		billingHandler.RegisterRoutes(r, authenticator)

		customerHandler.RegisterRoutes(r, authenticator, requireFeature(subscription.FeatureCustomers))
		txHandler.RegisterRoutes(r, authenticator, requireFeature(subscription.FeatureTransactions))
		fieldHandler.RegisterRoutes(r, authenticator, requireFeature(subscription.FeatureCustomFields))
		exportHandler.RegisterRoutes(r, authenticator,
			chi.Chain(requireFeature(subscription.FeatureExport), exportLimit).Handler)
		dashboardHandler.RegisterRoutes(r, authenticator, requireFeature(subscription.FeatureDashboard))

		userHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		adminHandler.RegisterRoutes(r, authenticator, adminOnly)
	})

	go purgeExpiredTokens(ctx, authSvc, logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := rdb.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

// purgeExpiredTokens runs until ctx is canceled.
func purgeExpiredTokens(ctx context.Context, svc *auth.Service, logger *slog.Logger) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeExpiredTokens(ctx)
			if err != nil {
				logger.Warn("refresh token purge failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("purged expired refresh tokens", "count", n)
			}
		}
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
