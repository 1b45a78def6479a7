package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/isakhq/marketplace/internal/adapter/handler"
	"github.com/isakhq/marketplace/internal/adapter/storage"
	"github.com/isakhq/marketplace/internal/auth"
	"github.com/isakhq/marketplace/internal/core/service"
	"github.com/isakhq/marketplace/internal/port"
	"github.com/isakhq/marketplace/pkg/logging"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	logging.Setup()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr := getEnv("HTTP_ADDR", ":8080")
	driver := getEnv("STORE_DRIVER", "sqlite")
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		slog.Error("JWT_SECRET must be set (shared secret with the identity provider)")
		os.Exit(1)
	}

	store, err := openStore(ctx, driver)
	if err != nil {
		slog.Error("failed to initialize store", "driver", driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("store initialized", "driver", driver)

	cache := openStockGuard(ctx, store)

	catalogSvc := service.NewCatalogService(store, cache)
	purchaseSvc := service.NewPurchaseService(store, cache)
	verifier := auth.NewVerifier(jwtSecret)

	mux := http.NewServeMux()
	h := handler.NewHTTPHandler(catalogSvc, purchaseSvc, verifier)
	h.Register(mux)

	server := &http.Server{
		Addr:    addr,
		Handler: handler.RequestLogger(mux),
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("shutdown incomplete", "error", err)
	}
	slog.Info("HTTP server stopped")
}

// openStore picks the persistence backend: embedded SQLite by default,
// MySQL when STORE_DRIVER=mysql.
func openStore(ctx context.Context, driver string) (port.Store, error) {
	switch driver {
	case "mysql":
		dsn := getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/marketplace?parseTime=true")
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			return nil, err
		}
		return storage.NewMySQLStore(db)
	default:
		return storage.NewSQLiteStore(getEnv("SQLITE_PATH", "./data/marketplace.db"))
	}
}

// openStockGuard wires the optional Redis fast path. No REDIS_ADDR means
// no guard: purchases then rely solely on the store transaction, which is
// correct either way.
func openStockGuard(ctx context.Context, store port.Store) port.StockCache {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		slog.Info("stock guard disabled (REDIS_ADDR not set)")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr, PoolSize: 100})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, stock guard disabled", "addr", redisAddr, "error", err)
		return nil
	}

	guard := storage.NewRedisStockGuard(rdb)

	// Seed counters from the catalog so existing items get the fast path.
	items, err := store.ListItems(ctx)
	if err != nil {
		slog.Warn("failed to list items for guard seeding", "error", err)
		return guard
	}
	for _, item := range items {
		if err := guard.SetStock(ctx, item.ID, item.Quantity); err != nil {
			slog.Warn("failed to seed stock counter", "item_id", item.ID, "error", err)
		}
	}
	slog.Info("stock guard enabled", "addr", redisAddr, "seeded_items", len(items))
	return guard
}
