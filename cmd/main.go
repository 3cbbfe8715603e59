package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"movie-catalog-service/internal/config"
	"movie-catalog-service/internal/database"
	"movie-catalog-service/internal/handler"
	"movie-catalog-service/internal/logger"
	"movie-catalog-service/internal/middleware"
	"movie-catalog-service/internal/omdb"
	"movie-catalog-service/internal/repository"
	"movie-catalog-service/internal/service"
	"movie-catalog-service/internal/translate"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Structured logging
	log := logger.New(cfg.Log.Format, cfg.Log.Level, cfg.Log.File)
	slog.SetDefault(log)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			AttachStacktrace: true,
			Tags:             map[string]string{"service": "movie-catalog-service"},
		}); err != nil {
			slog.Warn("sentry init failed, error reporting disabled", "error", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	if cfg.OMDB.APIKey == "" {
		slog.Warn("OMDB_API_KEY is not set, provider lookups will fail")
	}
	if cfg.Auth.JWTSecret == "" {
		slog.Warn("JWT_SECRET is not set, every bearer token will be rejected")
	}

	// Connect to PostgreSQL
	db, err := database.NewPostgres(cfg.DB)
	if err != nil {
		slog.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to Redis (non-fatal if unavailable)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	rdb, err := database.NewRedis(ctx, cfg.Redis)
	cancel()
	var quota *omdb.RedisQuota
	if err != nil {
		slog.Warn("Redis unavailable, running without search cache and shared quota", "error", err)
	} else {
		defer rdb.Close()
		quota = omdb.NewRedisQuota(rdb, cfg.OMDB.DailyQuota, 24*time.Hour, log)
	}

	// Initialize OMDb client
	omdbClient := omdb.NewClient(omdb.Options{
		APIKey:         cfg.OMDB.APIKey,
		BaseURL:        cfg.OMDB.BaseURL,
		Timeout:        cfg.OMDB.Timeout,
		RequestsPerSec: cfg.OMDB.RequestsPerSec,
		Burst:          cfg.OMDB.Burst,
		RetryAttempts:  cfg.OMDB.RetryAttempts,
		SearchCacheTTL: cfg.OMDB.SearchCacheTTL,
		Redis:          rdb,
		Quota:          quota,
		Logger:         log,
	})

	var translator translate.Translator = translate.Noop{}
	if cfg.Translate.Enabled {
		translator = translate.NewGoogleClient(cfg.Translate.BaseURL, log)
	}

	// Initialize layers
	movieRepo := repository.NewMovieRepository(db)
	ratingRepo := repository.NewRatingRepository(db)

	cacheSvc := service.NewCacheService(movieRepo, ratingRepo, omdbClient, translator, service.CacheOptions{
		TTL:        cfg.Cache.TTL,
		TargetLang: cfg.Translate.TargetLang,
		Logger:     log,
	})
	querySvc := service.NewQueryService(movieRepo, ratingRepo, cacheSvc, log)
	adminSvc := service.NewAdminService(movieRepo, cacheSvc, log)
	ratingSvc := service.NewRatingService(movieRepo, ratingRepo, log)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Movie Catalog Service",
		ServerHeader: "Movie-Catalog-Service",
		ErrorHandler: handler.ErrorHandler(log),
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New())

	// Swagger docs
	swaggerYAML, err := os.ReadFile("docs/swagger.yaml")
	if err != nil {
		slog.Warn("swagger.yaml not found, swagger UI will be unavailable", "error", err)
	} else {
		handler.RegisterSwagger(app, "Movie Catalog Service", swaggerYAML)
	}

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes
	limiter := middleware.NewRateLimiter(rdb, cfg.RateLimit.Max, cfg.RateLimit.Window, log)
	handler.Register(app,
		middleware.NewJWTAuthenticator(cfg.Auth.JWTSecret),
		limiter.Handler(),
		handler.NewMovieHandler(cacheSvc, querySvc),
		handler.NewAdminHandler(adminSvc, cacheSvc),
		handler.NewRatingHandler(ratingSvc),
	)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		slog.Info("shutting down movie catalog service...")
		_ = app.Shutdown()
	}()

	// Start server
	addr := ":" + cfg.Port
	slog.Info("starting movie catalog service", "addr", addr)
	if err := app.Listen(addr); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
