package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/inventario/api/routes"
	product "github.com/angelmondragon/inventario/internal/products"
	"github.com/angelmondragon/inventario/internal/sales"
	"github.com/angelmondragon/inventario/pkg/config"
	"github.com/angelmondragon/inventario/pkg/db"
	"github.com/angelmondragon/inventario/pkg/logger"
	"github.com/angelmondragon/inventario/pkg/metrics"
	"github.com/angelmondragon/inventario/pkg/migrate"
	"github.com/angelmondragon/inventario/pkg/redis"
	"github.com/angelmondragon/inventario/web"
)

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
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, redisClient.Close()) }()
	} else {
		logg.Warn(ctx, "redis not configured, form idempotency and rate limiting disabled")
	}

	registry := metrics.NewRegistry()

	productService, err := product.NewService(product.NewRepository(dbClient.DB()), dbClient, logg)
	if err != nil {
		return err
	}
	salesService, err := sales.NewService(sales.NewRepository(dbClient.DB()), dbClient, metrics.NewSalesMetrics(registry), logg)
	if err != nil {
		return err
	}

	views, err := web.NewRenderer()
	if err != nil {
		return err
	}

	port := os.Getenv(config.EnvListenPort)
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Deps{
			DB:             dbClient,
			Redis:          redisClient,
			Views:          views,
			ProductService: productService,
			SalesService:   salesService,
			HTTPMetrics:    metrics.NewHTTPMetrics(registry),
			Gatherer:       registry,
		}),
		ReadHeaderTimeout: cfg.App.RequestTimeout,
	}

	logCtx := logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": addr})
	logg.Info(logCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-serveErr
}
