package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/davidngn/go-order-system/internal/cache"
	"github.com/davidngn/go-order-system/internal/config"
	httpdelivery "github.com/davidngn/go-order-system/internal/delivery/http"
	"github.com/davidngn/go-order-system/internal/entity"
	"github.com/davidngn/go-order-system/internal/messaging"
	"github.com/davidngn/go-order-system/internal/messaging/kafka"
	"github.com/davidngn/go-order-system/internal/metrics"
	"github.com/davidngn/go-order-system/internal/ratelimit"
	"github.com/davidngn/go-order-system/internal/repository/postgres"
	"github.com/davidngn/go-order-system/internal/service"
	"github.com/davidngn/go-order-system/internal/worker"
)

func main() {
	slog.SetLogLoggerLevel(slog.LevelDebug)

	cfg := config.Load()

	// --- Database ---
	db, err := postgres.InitDB(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to init database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	productRepo := postgres.NewProductRepository(db)
	orderRepo := postgres.NewOrderRepository(db)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := productRepo.Seed(ctx, seedProducts()); err != nil {
		slog.Error("Failed to seed products", "err", err)
		os.Exit(1)
	}

	// --- Messaging ---
	var publisher messaging.Publisher = messaging.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = kafka.NewPublisher(cfg.KafkaBrokers)
		slog.Info("Kafka event publishing enabled", "brokers", cfg.KafkaBrokers)
	}

	// --- Redis (limiter store + product page cache) ---
	limiterStore := ratelimit.NewMemoryStore()
	var pageCache *cache.Cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		limiterStore = ratelimit.NewRedisStore(rdb)
		pageCache = cache.New(rdb, cfg.ProductCacheTTL)
		slog.Info("Redis enabled", "addr", cfg.RedisAddr)
	}
	limiter := ratelimit.NewFixedWindow(limiterStore, cfg.RateLimit, cfg.RateLimitWindow)

	// --- Services ---
	m := metrics.New(prometheus.DefaultRegisterer)
	orderSvc := service.NewOrderService(orderRepo, publisher, m)
	productSvc := service.NewProductService(productRepo, publisher)

	// --- HTTP ---
	handler := httpdelivery.NewHandler(orderSvc, productSvc, pageCache, limiter, m)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpdelivery.EnableCORS(mux),
	}

	statusWorker := worker.New(orderSvc, cfg.WorkerInterval, m)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		err := statusWorker.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down...")
		return httpServer.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server exited with error", "err", err)
		os.Exit(1)
	}
}

func seedProducts() []entity.Product {
	return []entity.Product{
		{Name: "Laptop", Price: 1200, Stock: 10},
		{Name: "Phone", Price: 800, Stock: 25},
		{Name: "Headphones", Price: 150, Stock: 100},
		{Name: "Keyboard", Price: 90, Stock: 50},
		{Name: "Monitor", Price: 300, Stock: 20},
	}
}
