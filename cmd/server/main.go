package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tariffapp "github.com/concierge/backend/internal/application/tariff"
	"github.com/concierge/backend/internal/domain/tariff"
	"github.com/concierge/backend/internal/infrastructure/cache"
	"github.com/concierge/backend/internal/infrastructure/config"
	"github.com/concierge/backend/internal/infrastructure/countryref"
	"github.com/concierge/backend/internal/infrastructure/logger"
	"github.com/concierge/backend/internal/infrastructure/persistence"
	"github.com/concierge/backend/internal/interfaces/http/handler"
	"github.com/concierge/backend/internal/interfaces/http/middleware"
	"github.com/concierge/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Concierge Tariff Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.Open(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize the calculation cache. Redis is preferred; when it is
	// unreachable or caching is disabled the engine still serves correct
	// answers, only slower.
	cacheConfig := tariff.CacheConfig{EntryTTL: cfg.Cache.EntryTTL}
	var rateCache tariff.RateCache
	var cacheCheck handler.HealthCheck
	if cfg.Cache.Enabled {
		redisCache, err := cache.NewRedisRateCache(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cache.WithCacheConfig(cacheConfig), cache.WithCacheLogger(log))
		if err != nil {
			log.Warn("Redis unavailable, falling back to in-memory cache", zap.Error(err))
			memCache := cache.NewInMemoryRateCache(
				cache.WithInMemoryConfig(cacheConfig),
				cache.WithInMemoryLogger(log),
			)
			defer func() { _ = memCache.Close() }()
			rateCache = memCache
		} else {
			defer func() { _ = redisCache.Close() }()
			rateCache = redisCache
			client := redisCache.GetClient()
			cacheCheck = func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			}
			log.Info("Redis cache connected",
				zap.String("host", cfg.Redis.Host),
				zap.Int("port", cfg.Redis.Port))
		}
	} else {
		log.Info("Calculation cache disabled by configuration")
	}

	// Country reference data (continent and trade-region membership)
	countries := countryref.New()

	// Initialize repositories
	serviceRepo := persistence.NewGormServiceRepository(db.DB)
	overrideRepo := persistence.NewGormRateOverrideRepository(db.DB)
	minimumRepo := persistence.NewGormMinimumValuationRepository(db.DB)
	statsRepo := persistence.NewGormCountryStatsRepository(db.DB)

	// Initialize the resolver and application services
	resolver := tariff.NewResolver(overrideRepo, countries, rateCache,
		tariff.WithResolverLogger(log),
		tariff.WithResolverCacheConfig(cacheConfig),
	)
	rateService := tariffapp.NewRateService(
		serviceRepo, overrideRepo, countries, minimumRepo, rateCache, resolver, log,
	)
	bulkService := tariffapp.NewBulkService(
		serviceRepo, overrideRepo, countries, rateCache, resolver, statsRepo, log,
		tariffapp.WithBulkParallelism(cfg.Bulk.Parallelism),
	)

	// Initialize handlers
	tariffHandler := handler.NewTariffHandler(rateService, bulkService)
	systemHandler := handler.NewSystemHandler().
		WithCheck("database", func(ctx context.Context) error {
			return db.Ping()
		})
	if cacheCheck != nil {
		systemHandler.WithCheck("cache", cacheCheck)
	}

	// Set gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Configure the validator to report JSON field names
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log, "/health", "/api/v1/system/ping"))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(tariffHandler).
		Register(systemHandler)
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		body := gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		}
		if stats, err := db.Stats(); err == nil {
			body["pool"] = stats
		}
		c.JSON(http.StatusOK, body)
	}
}
