package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/food-orders/internal/domain/coupon"
	"github.com/xenking/food-orders/internal/domain/menu"
	"github.com/xenking/food-orders/internal/domain/order"
	"github.com/xenking/food-orders/internal/events"
	"github.com/xenking/food-orders/internal/handler"
	"github.com/xenking/food-orders/internal/storage/cache"
	"github.com/xenking/food-orders/internal/storage/postgres"
	"github.com/xenking/food-orders/pkg/health"
	"github.com/xenking/food-orders/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
//
// m is usually the *app.Telemetry handed over by the sdk runner.
func Run(ctx context.Context, lg *zap.Logger, m httpmiddleware.TelemetryProvider, cfg *Config) error {
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

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck("postgres", pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Repositories.
	menuRepo := postgres.NewMenuRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)
	couponRepo := postgres.NewCouponRepository(pool)

	var orderRepo order.Repository = postgres.NewOrderRepository(pool)
	if cfg.Redis.Addr != "" {
		client, err := cache.NewClient(ctx, cfg.Redis.Addr)
		if err != nil {
			return errors.Wrap(err, "connect redis")
		}
		defer func() { _ = client.Close() }()

		orderRepo = cache.NewOrderCache(orderRepo, client, cfg.Redis.CacheTTL)
		healthSvc.AddReadinessCheck("redis", 2*time.Second, health.RedisCheck(client))
		lg.Info("Order cache enabled", zap.Duration("ttl", cfg.Redis.CacheTTL))
	}

	estimator, err := order.NewUniformEstimator(cfg.Orders.DeliveryMin, cfg.Orders.DeliveryMax)
	if err != nil {
		return errors.Wrap(err, "delivery estimator")
	}
	orderOpts := []order.Option{
		order.WithIDGenerator(order.XIDGenerator{Prefix: cfg.Orders.IDPrefix}),
		order.WithEstimator(estimator),
		order.WithStrictTransitions(cfg.Orders.StrictTransitions),
		order.WithMeterProvider(m.MeterProvider()),
		order.WithTracerProvider(m.TracerProvider()),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := publisher.Close(); err != nil {
				lg.Warn("Close event publisher", zap.Error(err))
			}
		}()
		orderOpts = append(orderOpts, order.WithPublisher(publisher))
		lg.Info("Order events enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	// Domain services.
	couponService := coupon.NewService(couponRepo)
	orderService, err := order.NewService(menuRepo, couponService, orderRepo, userRepo, orderOpts...)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	h := handler.New(
		menu.NewService(menuRepo),
		couponService,
		orderService,
		userRepo,
		handler.NewAuthenticator(apikeyRepo, userRepo, []byte(cfg.APIKeyPepper)),
	)
	router := h.Router(
		httpmiddleware.LogRequests(handler.RoutePattern),
		httpmiddleware.Labeler(handler.RoutePattern),
	)
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)

	trusted, err := httpmiddleware.ParseTrustedProxies(cfg.RateLimit.TrustedProxies)
	if err != nil {
		return errors.Wrap(err, "trusted proxies")
	}
	limiter := httpmiddleware.NewLimiter(cfg.RateLimit.Max, cfg.RateLimit.Window)
	if cfg.RateLimit.Max > 0 && cfg.RateLimit.Window > 0 {
		go limiter.Run(ctx)
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.RequestID(),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowCredentials: cfg.CORS.AllowCredentials,
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWith(limiter, httpmiddleware.ClientIPFrom(trusted)),
			httpmiddleware.Instrument("food-orders", m),
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
