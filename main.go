package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salonsync-backend/config"
	"salonsync-backend/middleware"
	"salonsync-backend/routes"
	"salonsync-backend/services"
	"salonsync-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func init() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found")
	}
}

func main() {
	config.InitLogger(os.Getenv("LOG_LEVEL"))

	ctx := context.Background()
	if err := config.LoadSecrets(ctx, os.Getenv("AWS_SECRETS_ID")); err != nil {
		slog.Error("failed to load secrets", "error", err)
		os.Exit(1)
	}

	settings, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	config.InitLogger(settings.LogLevel)
	if settings.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := config.ConnectDB(settings.Database); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := config.Migrate(config.DB); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	store, err := storage.New(ctx, settings.Storage)
	if err != nil {
		slog.Error("storage setup failed", "error", err)
		os.Exit(1)
	}

	notifier := services.NewNotifier(settings.Twilio)
	publisher := services.NewInstagramPublisher(settings.InstagramGraphURL, nil)

	var reminders *services.ReminderService
	if settings.SchedulerEnabled {
		reminders = services.NewReminderService(config.DB, notifier, publisher)
		if err := reminders.StartScheduler(); err != nil {
			slog.Error("scheduler failed to start", "error", err)
			os.Exit(1)
		}
	}

	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Rate:   settings.RateLimit.PerMinute,
		Window: time.Minute,
		Burst:  settings.RateLimit.Burst,
	})
	defer limiter.Stop()

	r := routes.SetupRouter(routes.Deps{
		Settings:    settings,
		Notifier:    notifier,
		Publisher:   publisher,
		Store:       store,
		Captions:    services.NewCaptionGenerator(),
		RateLimiter: limiter,
	})
	printRoutes(r)

	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", settings.Port, "env", settings.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	if reminders != nil {
		reminders.Stop()
	}
}

func printRoutes(r *gin.Engine) {
	for _, route := range r.Routes() {
		slog.Debug("route", "method", route.Method, "path", route.Path)
	}
}
