package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/frontdesk/internal/booking"
	"github.com/iliyamo/frontdesk/internal/config"
	"github.com/iliyamo/frontdesk/internal/database"
	"github.com/iliyamo/frontdesk/internal/events"
	"github.com/iliyamo/frontdesk/internal/handler"
	"github.com/iliyamo/frontdesk/internal/hold"
	"github.com/iliyamo/frontdesk/internal/logging"
	"github.com/iliyamo/frontdesk/internal/middleware"
	"github.com/iliyamo/frontdesk/internal/router"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		log.Printf("frontdesk: %v", err)
		os.Exit(1)
	}
}

// run owns every resource it opens, so each deferred close runs before
// main decides the exit code.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logFile, logger, err := logging.Setup(cfg.Logging.Directory, logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Options{
		User:     cfg.DB.User,
		Pass:     cfg.DB.Pass,
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		Name:     cfg.DB.Name,
		MaxOpen:  cfg.DB.MaxOpenConns,
		Lifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("mysql connect: %w", err)
	}
	defer db.Close()

	// The client is kept even when the boot ping fails; go-redis reconnects
	// and holds fail closed only while Redis is unreachable.  A nil client
	// means Redis is disabled: holds always fail closed, rate limiting uses
	// in-process buckets and caching is off.
	rdb, err := config.NewRedisClient(config.LoadRedisConfig())
	switch {
	case rdb == nil:
		logger.Warn("redis disabled; holds will fail closed")
	case err != nil:
		logger.Warn("redis unreachable at startup; readiness will report it", slog.Any("error", err))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	publisher, err := events.NewPublisher(cfg.Events, logger)
	if err != nil {
		return fmt.Errorf("events setup: %w", err)
	}
	var bookingPublisher booking.Publisher
	if publisher != nil {
		bookingPublisher = publisher
		defer publisher.Close()
	}

	svc := booking.NewService(booking.NewSQLStore(db), hold.NewManager(rdb), bookingPublisher, logger, booking.Options{
		CommitTimeout: cfg.CommitTimeout,
	})

	if err := startConsumer(ctx, cfg.Events, logger); err != nil {
		return fmt.Errorf("audit consumer setup: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.AccessLog(logger))

	errs := handler.BookingErrors(logger)
	router.RegisterRoutes(e, svc, errs)

	api := e.Group(cfg.APIPrefix, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger))
	router.RegisterBooking(api,
		handler.NewAvailabilityHandler(svc, errs),
		handler.NewReservationHandler(svc, errs))
	router.RegisterRestaurants(api,
		handler.NewRestaurantHandler(svc, errs),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb, logger))

	addr := ":" + cfg.Port
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", addr), slog.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		logger.Error("http server stopped", slog.Any("error", runErr))
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", slog.Any("error", err))
	}
	return runErr
}

// startConsumer runs the optional audit consumer until ctx is done.
func startConsumer(ctx context.Context, cfg config.EventsConfig, logger *slog.Logger) error {
	if !cfg.Consume {
		return nil
	}
	sink, file, err := events.OpenAuditFile(cfg.AuditDir)
	if err != nil {
		return err
	}
	consumer := events.NewConsumer(cfg, sink, logger)
	if consumer == nil {
		file.Close()
		return nil
	}
	go func() {
		defer file.Close()
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("audit consumer stopped", slog.Any("error", err))
		}
	}()
	return nil
}
