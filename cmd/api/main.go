package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/shoppingcart/api/controllers"
	"github.com/angelmondragon/shoppingcart/api/routes"
	"github.com/angelmondragon/shoppingcart/internal/cart"
	product "github.com/angelmondragon/shoppingcart/internal/products"
	"github.com/angelmondragon/shoppingcart/pkg/config"
	"github.com/angelmondragon/shoppingcart/pkg/db"
	"github.com/angelmondragon/shoppingcart/pkg/logger"
	"github.com/angelmondragon/shoppingcart/pkg/metrics"
	"github.com/angelmondragon/shoppingcart/pkg/migrate"
	"github.com/angelmondragon/shoppingcart/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer
	closeAll := func() {
		var errs error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = multierr.Append(errs, closers[i].Close())
		}
		if errs != nil {
			logg.Error(context.Background(), "error closing resources", errs)
		}
	}
	fail := func(msg string, err error) {
		logg.Error(context.Background(), msg, err)
		closeAll()
		os.Exit(1)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		fail("failed to bootstrap database", err)
	}
	closers = append(closers, dbClient)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		fail("failed to run dev migrations", err)
	}

	readiness := map[string]controllers.Pinger{"db": dbClient}

	var store cart.Store
	switch cfg.Cart.SessionStore {
	case config.SessionStoreRedis:
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			fail("failed to bootstrap redis", err)
		}
		closers = append(closers, redisClient)
		readiness["redis"] = redisClient
		store = cart.NewSessionStore(redisClient, cfg.Cart.SessionTTL)
	default:
		logg.Warn(ctx, "using in-memory cart session store")
		store = cart.NewMemoryStore()
	}

	taxRate, err := cfg.Cart.TaxRate()
	if err != nil {
		fail("invalid default tax rate", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	cartService, err := cart.NewService(cart.ServiceParams{
		Store:      store,
		Repository: cart.NewRepository(dbClient.DB()),
		Tx:         dbClient,
		Products:   product.NewCatalog(product.NewRepository(dbClient.DB())),
		Logger:     logg,
		Metrics:    metrics.NewCartMetrics(registry),
		Currency:   cfg.Cart.Currency(),
		TaxRate:    taxRate,
	})
	if err != nil {
		fail("failed to create cart service", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":           cfg.App.Env,
		"addr":          addr,
		"session_store": cfg.Cart.SessionStore,
	})
	logg.Info(serverCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, cartService, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), readiness),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fail("api server stopped unexpectedly", err)
		}
	case <-ctx.Done():
		logg.Info(serverCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(serverCtx, "graceful shutdown failed", err)
		}
	}

	closeAll()
}
