package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-campus-bookings/internal/bookings"
	"github.com/ariefcatur/go-campus-bookings/internal/config"
	"github.com/ariefcatur/go-campus-bookings/internal/httpx"
	kafkax "github.com/ariefcatur/go-campus-bookings/internal/kafka"
	"github.com/ariefcatur/go-campus-bookings/internal/notify"
	"github.com/ariefcatur/go-campus-bookings/internal/postgres"
	"github.com/ariefcatur/go-campus-bookings/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	decimal.MarshalJSONWithoutQuotes = true

	logger := newLogger(cfg)
	if cfg.JWTSecret == "" {
		logger.Fatal().Msg("JWT_SECRET is required")
	}
	pricing, err := bookings.ParsePricingMode(cfg.Booking.Pricing)
	if err != nil {
		logger.Fatal().Err(err).Msg("config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.RunMigrations {
		if err := postgres.RunMigrations(cfg.PostgresDSN, logger); err != nil {
			logger.Fatal().Err(err).Msg("migrations")
		}
	}

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, caching degraded")
	}

	// Kafka producer: booking events and email requests
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, logger)
	prod.Start(ctx)

	dispatcher := notify.NewDispatcher(
		newSender(cfg, prod, logger),
		notify.Recipients{AdminEmail: cfg.Notify.AdminEmail, AdminAlerts: cfg.Notify.AdminAlerts},
		cfg.Notify.Timeout,
		logger,
	)

	svc := bookings.NewService(db,
		bookings.Deps{
			Notifier: dispatcher,
			Events:   prod,
			Cache:    bookings.NewRedisCache(rdb, logger),
		},
		bookings.Options{
			Pricing:        pricing,
			PriceTolerance: cfg.Booking.PriceTolerance,
			TxRetries:      cfg.Booking.TxRetries,
			TxBackoff:      cfg.Booking.TxBackoff,
			ServiceName:    cfg.ServiceName,
		},
		logger,
	)

	router := httpx.NewRouter(logger, cfg.RequestTimeout)
	bh := &httpx.BookingsHandler{
		Service: svc,
		Auth:    httpx.NewAuthenticator(cfg.JWTSecret),
		Log:     logger,
	}
	bh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("pricing", string(pricing)).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	dispatcher.Wait() // pending emails may still publish to the producer
	prod.Close()
	prod.WaitClosed()
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", cfg.ServiceName).Logger()
}

func newSender(cfg config.Config, prod *kafkax.Producer, logger zerolog.Logger) notify.Sender {
	switch cfg.Notify.Mode {
	case "smtp":
		return notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.Notify.From,
		})
	case "log":
		return notify.NewLogSender(logger)
	default:
		return notify.NewKafkaSender(prod, cfg.ServiceName)
	}
}
