package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/event-ticket-booking/internal/config"
	"github.com/iliyamo/event-ticket-booking/internal/database"
	"github.com/iliyamo/event-ticket-booking/internal/handler"
	"github.com/iliyamo/event-ticket-booking/internal/middleware"
	"github.com/iliyamo/event-ticket-booking/internal/queue"
	"github.com/iliyamo/event-ticket-booking/internal/realtime"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
	"github.com/iliyamo/event-ticket-booking/internal/router"
	"github.com/iliyamo/event-ticket-booking/internal/service"
)

func main() {
	_ = godotenv.Load() // a missing .env is fine; the environment wins
	cfg := config.Load()

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		fatal(logger, "open database", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		fatal(logger, "migrate", err)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable; rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	hub := realtime.NewHub(cfg.Lock, logger)
	go hub.Run(ctx)

	var publisher service.BookingPublisher
	if cfg.Queue.Enabled {
		publisher = service.NewQueuePublisher(cfg.Queue, logger)
		go func() {
			if err := queue.NewConsumer(cfg.Queue, logger).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("booking consumer stopped", "error", err)
			}
		}()
	}

	eventRepo := repository.NewEventRepo(db)
	bookingSvc := service.NewBookingService(service.BookingOptions{
		Tx:            repository.NewTxManager(db),
		Events:        eventRepo,
		Bookings:      repository.NewBookingRepo(db),
		Releaser:      hub,
		Publisher:     publisher,
		Logger:        logger,
		CommitTimeout: cfg.CommitTimeout,
	})
	eventSvc := service.NewEventService(eventRepo)

	cache := middleware.NewResponseCache(cfg.Cache, rdb)
	limiter := middleware.NewTokenBucket(cfg.RateLimit, rdb)

	bookingHandler := handler.NewBookingHandler(bookingSvc, cache)
	eventHandler := handler.NewEventHandler(eventSvc, cache)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(requestLogger(logger))

	router.RegisterRoutes(e, db)
	router.RegisterPublic(e, eventHandler, cache.Middleware())
	router.RegisterRealtime(e, handler.NewRealtimeHandler(hub, cfg.Lock, cfg.JWTSecret), limiter)
	router.RegisterBookings(e, bookingHandler, cfg.JWTSecret, limiter)
	router.RegisterAdmin(e, bookingHandler, eventHandler, cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(logger, "http server", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}

// newLogger emits JSON in production and readable text elsewhere.
func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if !cfg.IsProd() {
		opts.Level = slog.LevelDebug
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				level = slog.LevelError
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(context.Background(), level, "request", attrs...)
			return nil
		},
	})
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
