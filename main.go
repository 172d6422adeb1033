package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"local-services-server/config"
	"local-services-server/database"
	"local-services-server/jobs"
	"local-services-server/logging"
	"local-services-server/middleware"
	"local-services-server/routes"
	"local-services-server/services"
	ws "local-services-server/websocket"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.Logging)
	if envErr != nil {
		logger.Info().Msg("No .env file found, using system environment variables")
	}

	if cfg.Server.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Initialize(cfg.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize database")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog, err := config.LoadCatalog(cfg.Database.CatalogPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load service catalog")
	}
	if n, err := database.SeedCatalog(ctx, db, catalog); err != nil {
		logger.Fatal().Err(err).Msg("Failed to seed service catalog")
	} else if n > 0 {
		logger.Info().Int("services", n).Msg("🌱 Service catalog seeded")
	}

	admins := services.NewAdminService(db, cfg.JWT, logger)
	if _, err := admins.EnsureBootstrapAdmin(ctx, cfg.Admin); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create bootstrap admin")
	}

	loc := cfg.Booking.Location()

	// Redis backs booking numbers and the dashboard cache when enabled.
	var redisClient *redis.Client
	var sequencer services.Sequencer = services.NewMemorySequencer()
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn().Err(err).Msg("⚠️ Redis unreachable, falling back to in-process sequencing")
			_ = redisClient.Close()
			redisClient = nil
		} else {
			sequencer = services.NewRedisSequencer(redisClient, time.Minute)
			logger.Info().Str("addr", cfg.Redis.Address).Msg("✅ Connected to Redis")
		}
		pingCancel()
	}

	var publisher services.EventPublisher = services.NopPublisher{}
	if cfg.NATS.Enabled {
		natsPub, err := services.NewNATSPublisher(cfg.NATS.URL)
		if err != nil {
			logger.Warn().Err(err).Msg("⚠️ NATS unavailable, booking events will not be published")
		} else {
			publisher = natsPub
			logger.Info().Str("url", cfg.NATS.URL).Msg("✅ Connected to NATS")
		}
	}

	var push services.PushSender
	if cfg.Firebase.Enabled {
		fcmSender, err := services.NewFCMSender(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			logger.Warn().Err(err).Msg("⚠️ Firebase unavailable, push notifications will only be logged")
		} else {
			push = fcmSender
		}
	}

	var uploader services.MediaUploader
	if cfg.Cloudinary.Enabled {
		cld, err := services.NewCloudinaryUploader(cfg.Cloudinary.URL, cfg.Cloudinary.Folder)
		if err != nil {
			logger.Warn().Err(err).Msg("⚠️ Cloudinary unavailable, photo uploads disabled")
		} else {
			uploader = cld
		}
	}

	hub := ws.NewHub(logger)
	go hub.Run()

	notifications := services.NewNotificationService(db, services.NotificationOptions{
		Push:          push,
		Publisher:     publisher,
		SubjectPrefix: cfg.NATS.SubjectPrefix,
		Broadcaster:   hub,
		QueueSize:     cfg.Notifications.QueueSize,
	}, logger)
	notifications.Start()

	dashboard := services.NewDashboardService(db, redisClient, loc, logger)
	bookings := services.NewBookingService(db, cfg.Booking, services.BookingServiceDeps{
		Numbers:  services.NewBookingNumberGenerator(cfg.Booking.NumberPrefix, loc, sequencer, logger),
		Notifier: notifications,
		Uploader: uploader,
		Cache:    dashboard,
	}, logger)

	retention := jobs.NewRetentionJob(notifications, cfg.Notifications.RetentionDays, cfg.Notifications.SweepInterval, logger)
	retention.Start()

	limiter := middleware.NewRateLimiter()
	limiter.StartCleanup(ctx, 10*time.Minute)

	router := routes.SetupRouter(routes.Deps{
		Config:        cfg,
		DB:            db,
		Logger:        logger,
		Bookings:      bookings,
		Notifications: notifications,
		Admins:        admins,
		Dashboard:     dashboard,
		Exports:       services.NewExportService(db, loc, logger),
		Hub:           hub,
		RateLimiter:   limiter,
	})

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Server.Port).Msg("🚀 Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("🛑 Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}

	shutdown(logger, cancel, retention, notifications, hub, publisher, redisClient)
	logger.Info().Msg("✅ Server stopped")
}

// shutdown stops background workers after HTTP traffic has drained. The
// notification queue is flushed before the publisher closes.
func shutdown(logger zerolog.Logger, cancel context.CancelFunc, retention *jobs.RetentionJob, notifications *services.NotificationService, hub *ws.Hub, publisher services.EventPublisher, redisClient *redis.Client) {
	cancel()
	retention.Stop()
	notifications.Stop()
	hub.Stop()
	if err := publisher.Close(); err != nil {
		logger.Warn().Err(err).Msg("closing event publisher")
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing redis client")
		}
	}
	if sqlDB, err := database.GetDB().DB(); err == nil {
		_ = sqlDB.Close()
	}
}
