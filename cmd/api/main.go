package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/instance"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "config.load_failed", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Fields:      map[string]any{"env": cfg.App.Env},
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api.stopped_unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	bootCtx := context.Background()

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(bootCtx, "db.close_failed", err)
		}
	}()

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(bootCtx, "redis.close_failed", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sessionManager, err := session.NewManager(redisClient)
	if err != nil {
		return err
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	catalogService, err := catalog.NewService(catalogRepo, dbClient, logg)
	if err != nil {
		return err
	}

	shipping := cart.NewShippingPolicy(cfg.Shop)
	cartStore, err := cart.NewStore(redisClient, cfg.Cart.TTL)
	if err != nil {
		return err
	}
	cartService, err := cart.NewService(cartStore, catalogService, shipping, cfg.Shop.MaxLineQuantity, logg)
	if err != nil {
		return err
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:        ordersRepo,
		CatalogRepo: catalogRepo,
		Tx:          dbClient,
		Outbox:      outboxService,
		Numbers: orders.FallbackGenerator{
			Primary:  orders.NewSequenceGenerator(redisClient),
			Fallback: orders.ULIDGenerator{},
		},
		Shipping: shipping,
		Shop:     cfg.Shop,
		Metrics:  metrics.NewOrderMetrics(reg),
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	verifier, err := payments.NewSHA512Verifier(cfg.Payment.ServerKey)
	if err != nil {
		return err
	}
	deliveryGuard, err := idempotency.NewManager(redisClient, cfg.Payment.IdempotencyTTL)
	if err != nil {
		return err
	}
	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:       payments.NewRepository(dbClient.DB()),
		OrdersRepo: ordersRepo,
		Tx:         dbClient,
		Verifier:   verifier,
		Outbox:     outboxService,
		Guard:      deliveryGuard,
		Metrics:    metrics.NewPaymentMetrics(reg),
		Logger:     logg,
	})
	if err != nil {
		return err
	}

	usersRepo := users.NewRepository(dbClient.DB())
	usersService, err := users.NewService(usersRepo, cfg.Password, logg)
	if err != nil {
		return err
	}
	if cfg.Admin.BootstrapEmail != "" && cfg.Admin.BootstrapPassword != "" {
		created, err := usersService.EnsureBootstrapAdmin(bootCtx, cfg.Admin.BootstrapEmail, cfg.Admin.BootstrapPassword)
		if err != nil {
			return err
		}
		if created {
			logg.Info(logg.WithField(bootCtx, "email", cfg.Admin.BootstrapEmail), "users.bootstrap_admin_created")
		}
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return err
	}

	handler := routes.NewRouter(routes.Dependencies{
		Config:         cfg,
		Logger:         logg,
		Catalog:        catalogService,
		Cart:           cartService,
		Orders:         ordersService,
		Payments:       paymentsService,
		Users:          usersService,
		Auth:           authService,
		Sessions:       sessionManager,
		Idempotency:    redisClient,
		Limiter:        redisClient,
		HTTPMetrics:    metrics.NewHTTPMetrics(reg),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Ready: map[string]controllers.Pinger{
			"db":    dbClient,
			"redis": redisClient,
		},
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "api.starting")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logg.Info(ctx, "api.shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logg.Info(ctx, "api.stopped")
	return nil
}
