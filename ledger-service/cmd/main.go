package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/eaglebank/ledger/ledger-service/internal/command"
	"github.com/eaglebank/ledger/ledger-service/internal/config"
	"github.com/eaglebank/ledger/ledger-service/internal/handler"
	"github.com/eaglebank/ledger/ledger-service/internal/query"
	"github.com/eaglebank/ledger/ledger-service/internal/repository"
	"github.com/eaglebank/ledger/shared/events"
	"github.com/eaglebank/ledger/shared/logging"
	"github.com/eaglebank/ledger/shared/middleware"
	redisClient "github.com/eaglebank/ledger/shared/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("Failed to load configuration", zap.Error(err))
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		zap.NewExample().Fatal("Failed to build logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Ledger service stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	dialect, err := cfg.Dialect()
	if err != nil {
		return err
	}

	// Database connection
	db, err := repository.Setup(ctx, dialect, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	// Redis is optional
	var rdb *goredis.Client
	if cfg.RedisAddr != "" {
		redis, err := redisClient.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer redis.Close()
		rdb = redis.Client
	} else {
		logger.Warn("REDIS_ADDR not set, running without record cache and events")
	}

	router := newRouter(db, dialect, rdb, cfg, logger)
	srv := &http.Server{Addr: cfg.Addr(), Handler: router}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Ledger service starting", zap.String("addr", cfg.Addr()), zap.String("driver", string(dialect)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(db *sql.DB, dialect repository.Dialect, rdb *goredis.Client, cfg config.Config, logger *zap.Logger) *gin.Engine {
	// CQRS: store, record read cache, event publisher
	store := repository.NewLedgerStore(db, dialect)
	records := repository.NewRecordReadRepository(store, rdb, cfg.RecordCacheTTL, logger)
	publisher := events.NewPublisher(rdb)

	// Command + Query services
	commandSvc := command.NewLedgerCommandService(store, records, publisher, logger, command.RetryConfig{
		MaxAttempts: cfg.TxMaxAttempts,
		BaseDelay:   cfg.TxRetryBase,
	})
	querySvc := query.NewLedgerQueryService(store, records)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.LoggingMiddleware(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1", middleware.AuthMiddleware([]byte(cfg.JWTSecret)))
	handler.RegisterRoutes(v1,
		handler.NewAccountHandler(commandSvc, querySvc),
		handler.NewLedgerHandler(commandSvc, querySvc),
		handler.NewCustomerHandler(commandSvc, querySvc),
	)
	return router
}
