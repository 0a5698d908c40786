package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/events"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Structured logging (JSON to stdout, optionally a rotated file)
	out := logging.Setup(cfg.LogFile)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	db, err := database.Connect(cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// ERROR+ records are also batched into system_logs
	dbLogHandler := logging.NewDBHandler(db, 5*time.Second)
	slog.SetDefault(slog.New(logging.NewMultiHandler(logging.NewJSONHandler(out), dbLogHandler)))

	cleanupDone := make(chan struct{})
	logging.StartCleanup(db, cfg.LogRetention, cleanupDone)

	// Optional infrastructure
	var publisher events.Publisher = events.Noop{}
	var natsPublisher *events.NATSPublisher
	if cfg.NATSURL != "" {
		natsPublisher, err = events.Connect(cfg.NATSURL)
		if err != nil {
			slog.Error("nats unavailable, blog events disabled", "error", err)
		} else {
			publisher = natsPublisher
			slog.Info("nats connected", "url", cfg.NATSURL)
		}
	}

	var limiterStorage fiber.Storage
	var redisStorage *middleware.RedisStorage
	if cfg.RedisAddr != "" {
		redisStorage = middleware.NewRedisStorage(cfg.RedisAddr)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := redisStorage.Ping(ctx)
		cancel()
		if err != nil {
			slog.Error("redis unavailable, rate limits are per instance", "addr", cfg.RedisAddr, "error", err)
			_ = redisStorage.Close()
			redisStorage = nil
		} else {
			limiterStorage = redisStorage
		}
	}

	// Services
	tokens := services.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	verifier := services.NewFirebaseVerifier(cfg.FirebaseProjectID, cfg.FirebaseJWKSURL, cfg.VerifierTimeout)
	authService := services.NewAuthService(db, cfg, tokens, verifier)
	blogService := services.NewBlogService(db, cfg, publisher)

	signer, err := services.NewS3UploadSigner(context.Background(), cfg)
	if err != nil {
		slog.Error("upload signer setup failed", "error", err)
		os.Exit(1)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
		Output: out,
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	routes.Setup(app, routes.Handlers{
		Auth:   handlers.NewAuthHandler(authService, collector),
		Blog:   handlers.NewBlogHandler(blogService, collector),
		Upload: handlers.NewUploadHandler(signer),
		Health: handlers.NewHealthHandler(db),
	}, tokens, registry, limiterStorage)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(cleanupDone)
	if natsPublisher != nil {
		natsPublisher.Close()
	}
	if redisStorage != nil {
		if err := redisStorage.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}
	dbLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := database.Close(db); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	// 5xx detail stays in the logs
	if code >= fiber.StatusInternalServerError {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{Error: message})
}
