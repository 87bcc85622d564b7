package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/jobs"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/notify"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/crimewatch-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	stdoutHandler := logging.Setup(cfg.AppEnv)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(database.DB); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(stdoutHandler, pgLogHandler)))

	// System log and location history retention
	cleanupDone := make(chan struct{})
	retention := logging.DefaultRetention()
	retention.LocationHistory = cfg.LocationRetention
	logging.StartCleanup(database.DB, retention, cleanupDone)

	// Zone cache: Redis when configured, in-process otherwise
	var (
		rdb       goredis.UniversalClient
		zoneCache services.ZoneCache = services.NewMemoryZoneCache(cfg.ZoneCacheTTL)
	)
	if cfg.RedisAddr != "" {
		rdb = goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unreachable, zone cache falls back to memory", "addr", cfg.RedisAddr, "error", err)
			_ = rdb.Close()
			rdb = nil
		} else {
			zoneCache = services.NewRedisZoneCache(rdb, cfg.ZoneCacheTTL)
			slog.Info("zone cache backed by redis", "addr", cfg.RedisAddr)
		}
		cancel()
	}

	// Notification dispatch
	var sender notify.Sender = notify.LogSender{}
	if cfg.PushWebhookURL != "" {
		sender = notify.NewWebhookSender(cfg.PushWebhookURL, cfg.PushWebhookToken)
	}
	dispatcher := notify.NewDispatcher(sender, notify.Options{
		QueueSize:     cfg.DispatchQueueSize,
		Workers:       cfg.DispatchWorkers,
		RatePerSecond: cfg.PushRatePerSecond,
		SendTimeout:   cfg.DispatchTimeout,
	})

	// Services
	scoreService := services.NewScoreService(database.DB)
	engagementService := services.NewEngagementService(database.DB, scoreService)
	reportService := services.NewReportService(database.DB)
	zoneService := services.NewZoneService(database.DB, zoneCache)
	clusterService := services.NewClusterService(database.DB, zoneService, cfg.ClusterTimeout)
	locationService := services.NewLocationService(
		services.NewLocationMatcher(zoneService),
		services.NewNotificationThrottle(database.DB, cfg.ThrottleWindow),
		dispatcher,
	)

	// Scheduled zone maintenance (disabled when the interval is 0)
	jobsDone := make(chan struct{})
	jobs.StartClustering(clusterService, cfg.ClusterInterval, jobsDone)
	jobs.StartStatsRefresh(zoneService, cfg.StatsInterval, jobsDone)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())

	routes.Setup(app, cfg, routes.Handlers{
		Health:     handlers.NewHealthHandler(database.DB, rdb),
		Reports:    handlers.NewReportHandler(reportService, scoreService),
		Engagement: handlers.NewEngagementHandler(engagementService),
		Zones:      handlers.NewZoneHandler(zoneService, clusterService),
		Location:   handlers.NewLocationHandler(locationService),
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	close(jobsDone)
	close(cleanupDone)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	dispatcher.Close()
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if rdb != nil {
		_ = rdb.Close()
	}
	if err := database.Close(); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}
