package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"currency-bridge/internal/config"
	"currency-bridge/internal/exchange"
	"currency-bridge/internal/handler"
	"currency-bridge/internal/middleware"
	"currency-bridge/internal/service"
	"currency-bridge/internal/socket"
	"currency-bridge/pkg/cache"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Application struct {
	config  *config.Config
	router  *gin.Engine
	logger  *zap.Logger
	redis   *cache.RedisClient
	hub     *socket.Hub
	service *service.ConversionService
	server  *http.Server
}

func New(cfg *config.Config) *Application {
	logger := initLogger(&cfg.Logging)

	var redisClient *cache.RedisClient
	if cfg.Redis.Enabled {
		var err error
		redisClient, err = cache.NewRedisClient(cfg.Redis, logger)
		if err != nil {
			logger.Error("Failed to create Redis client", zap.Error(err))
			// Продолжаем без Redis
		}
	}
	return build(cfg, logger, exchange.NewClient(cfg.API, logger), redisClient)
}

func build(cfg *config.Config, logger *zap.Logger, fetcher exchange.Fetcher, redisClient *cache.RedisClient) *Application {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
		logger.Info("Running in RELEASE mode")
	} else {
		gin.SetMode(gin.DebugMode)
		logger.Info("Running in DEBUG mode")
	}

	var tables service.TableCache
	var redisPinger handler.Pinger
	if redisClient != nil {
		tables = redisClient
		redisPinger = redisClient
	}
	conversionService := service.NewConversionService(fetcher, tables, cfg.Cache.MaxDates, logger)
	hub := socket.NewHub(cfg.Socket.QueueSize, logger)

	app := &Application{
		config:  cfg,
		router:  gin.New(),
		logger:  logger,
		redis:   redisClient,
		hub:     hub,
		service: conversionService,
	}
	app.setupMiddleware()
	app.setupRouter(
		handler.NewHealthHandler(redisPinger),
		handler.NewCurrencyHandler(conversionService),
		handler.NewSocketHandler(hub, conversionService, cfg.Socket.Broadcast, logger),
	)
	logger.Info("Application initialized",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.Bool("redis_connected", redisClient != nil),
		zap.Bool("socket_broadcast", cfg.Socket.Broadcast),
	)
	return app
}

func initLogger(cfg *config.LoggingConfig) *zap.Logger {
	var logger *zap.Logger
	var err error
	if cfg.Format == "json" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	switch cfg.Level {
	case "debug":
		logger = logger.WithOptions(zap.IncreaseLevel(zap.DebugLevel))
	case "info":
		logger = logger.WithOptions(zap.IncreaseLevel(zap.InfoLevel))
	case "warn":
		logger = logger.WithOptions(zap.IncreaseLevel(zap.WarnLevel))
	case "error":
		logger = logger.WithOptions(zap.IncreaseLevel(zap.ErrorLevel))
	}
	return logger
}

func (a *Application) setupMiddleware() {
	a.router.Use(middleware.LoggingMiddleware(a.logger))
	a.router.Use(middleware.RecoveryMiddleware(a.logger))
	a.router.Use(middleware.CORSMiddleware(""))
	a.logger.Debug("Middleware configured")
}

func (a *Application) setupRouter(healthHandler *handler.HealthHandler, currencyHandler *handler.CurrencyHandler, socketHandler *handler.SocketHandler) {
	a.router.GET("/health", healthHandler.HealthCheck)
	a.router.GET("/socket", socketHandler.Serve)
	apiV1 := a.router.Group("/api/v1")
	apiV1.GET("/convert", currencyHandler.Convert)
	apiV1.GET("/currencies", currencyHandler.Currencies)
	a.logger.Debug("Routes configured",
		zap.String("health", "GET /health"),
		zap.String("socket", "GET /socket"),
		zap.String("convert", "GET /api/v1/convert"),
		zap.String("currencies", "GET /api/v1/currencies"),
	)
}

// Handler - корневой http.Handler приложения
func (a *Application) Handler() http.Handler {
	return a.router
}

func (a *Application) Run() error {
	warmCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := a.service.Warmup(warmCtx); err != nil {
		// таблица подгрузится при первом запросе
		a.logger.Warn("Rate table warmup failed", zap.Error(err))
	}
	cancel()

	a.server = &http.Server{
		Addr:         a.config.Server.Addr(),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	// Канал для ошибки сервера
	serverErr := make(chan error, 1)

	go func() {
		a.logger.Info("🚀 Server starting",
			zap.String("address", a.server.Addr),
			zap.String("mode", a.config.Server.Mode),
		)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		if err == nil {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-quit:
		a.logger.Info("🛑 Received shutdown signal", zap.String("signal", sig.String()))
		return a.Shutdown()
	}
}

// Shutdown корректно останавливает сервер
func (a *Application) Shutdown() error {
	a.logger.Info("Starting graceful shutdown...")

	// websocket соединения захвачены и не ждут http.Server.Shutdown
	a.hub.Close()

	var shutdownErr error
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Error("Failed to shutdown HTTP server", zap.Error(err))
			shutdownErr = fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	a.redis.Close()
	a.logger.Info("✅ Server stopped gracefully")
	_ = a.logger.Sync()
	return shutdownErr
}
