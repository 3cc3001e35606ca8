// Package app wires configuration, storage, domain services and the HTTP
// server into a runnable application.
package app

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/velano/storefront/internal/domain/cart"
	"github.com/velano/storefront/internal/domain/order"
	"github.com/velano/storefront/internal/domain/otp"
	"github.com/velano/storefront/internal/handler"
	"github.com/velano/storefront/internal/mailer"
	"github.com/velano/storefront/internal/storage/postgres"
	"github.com/velano/storefront/pkg/health"
	"github.com/velano/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.SetReady(true)

	// Repositories.
	userRepo := postgres.NewUserRepository(pool)
	otpRepo := postgres.NewOTPRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	reviewRepo := postgres.NewReviewRepository(pool)
	cartRepo := postgres.NewCartRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	txManager := postgres.NewTxManager(pool)

	// Outbound email: real SMTP when a host is configured, log-only otherwise.
	var dispatcher otp.Dispatcher
	if cfg.SMTP.Host != "" {
		dispatcher = mailer.NewSMTP(mailer.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	} else {
		lg.Warn("SMTP host not configured, emails will only be logged")
		dispatcher = mailer.NewLog(lg.Named("mailer"))
	}

	blocklist, err := loadBlocklist(cfg.BlocklistPath)
	if err != nil {
		return errors.Wrap(err, "load blocklist")
	}
	if blocklist != nil {
		lg.Info("Loaded disposable email domain filter", zap.String("path", cfg.BlocklistPath))
	}

	pricing, err := cfg.OrderPricing()
	if err != nil {
		return errors.Wrap(err, "pricing config")
	}

	// Domain services.
	otpService := otp.NewService(otpRepo, otp.NewHMACHasher([]byte(cfg.OTPPepper)), dispatcher, blocklist)
	cartService := cart.NewService(productRepo, cartRepo)
	orderService := order.NewService(cartRepo, productRepo, orderRepo, userRepo, txManager, pricing)

	// HTTP surface.
	tokens := handler.NewTokenIssuer([]byte(cfg.TokenSecret), cfg.TokenTTL)
	h := handler.NewHandler(userRepo, otpService, cartService, orderService, productRepo, reviewRepo, tokens)

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
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("storefront-api", m),
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
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// loadBlocklist reads a serialized bloom filter of disposable email domains,
// as produced by the blocklist-ingest command. An empty path disables the
// filter.
func loadBlocklist(path string) (*bloom.BloomFilter, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open filter file")
	}
	defer f.Close()

	var filter bloom.BloomFilter
	if _, err := filter.ReadFrom(f); err != nil {
		return nil, errors.Wrap(err, "read filter")
	}
	return &filter, nil
}
