package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quickbasket/internal/notify"
	"quickbasket/internal/persistence"
	"quickbasket/internal/repository"
	"quickbasket/internal/scheduler"
	"quickbasket/internal/service"
	"quickbasket/pkg/config"
	"quickbasket/pkg/database"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer closeStore()
	store = repository.NewQuotaStore(store, cfg.StorageQuotaBytes)

	logger.Info("store ready", zap.String("backend", cfg.StoreBackend))

	notices := notify.NewRecorder(notify.NewLogger(logger))
	storage := persistence.NewAdapter(store, scheduler.Real{}, notices, logger,
		persistence.WithDebounce(cfg.SaveDebounce),
		persistence.WithTimeout(cfg.StoreTimeout),
	)
	catalog := repository.NewCouponCatalog(repository.DefaultCoupons())
	ledger := service.NewLedger(catalog, storage, notices, logger)

	// Hydrate before serving so the first request sees the restored cart.
	if items, ok := storage.Load(ctx); ok {
		ledger.Hydrate(items)
	}

	a := &app{
		ledger:  ledger,
		storage: storage,
		recs:    service.NewRecommendationService(cfg.RecommendationDelay, logger),
		catalog: catalog,
		recent:  persistence.NewRecentlyViewed(store, logger, cfg.RecentlyViewedLimit),
		notices: notices,
		log:     logger,
	}

	router := setupRouter(a, cfg.GinMode)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	if err := storage.Flush(shutdownCtx); err != nil {
		logger.Warn("pending cart save was not written", zap.Error(err))
	}

	logger.Info("server exited")
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openStore connects the configured durable store and returns a function
// releasing it.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repository.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendMongoDB:
		mongoDB, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoRecordTTL)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := mongoDB.Disconnect(context.Background()); err != nil {
				logger.Error("error disconnecting from MongoDB", zap.Error(err))
			}
		}
		return repository.NewMongoStore(mongoDB.Database), closeFn, nil

	case config.BackendRedis:
		rdb, err := database.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := rdb.Close(); err != nil {
				logger.Error("error closing Redis client", zap.Error(err))
			}
		}
		return repository.NewRedisStore(rdb, config.GetEnv("REDIS_KEY_PREFIX", "quickbasket:")), closeFn, nil

	case config.BackendSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store, err := repository.NewSQLiteStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		closeFn := func() {
			if err := db.Close(); err != nil {
				logger.Error("error closing SQLite", zap.Error(err))
			}
		}
		return store, closeFn, nil

	default:
		return repository.NewMemoryStore(), func() {}, nil
	}
}
