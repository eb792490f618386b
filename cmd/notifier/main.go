package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-campus-bookings/internal/config"
	kafkax "github.com/ariefcatur/go-campus-bookings/internal/kafka"
	"github.com/ariefcatur/go-campus-bookings/internal/notify"
	"github.com/ariefcatur/go-campus-bookings/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	service := cfg.ServiceName + "-notifier"
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", service).Logger()

	// Redis: dedup of redelivered email requests
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}

	var sender notify.Sender = notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.Notify.From,
	})
	if cfg.Notify.Mode == "log" {
		sender = notify.NewLogSender(logger)
	}
	worker := notify.NewWorker(sender, rdb, service, logger)

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.Notifier.Group, notify.TopicEmail, cfg.Notifier.Workers, logger)

	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info().
			Str("group", cfg.Notifier.Group).
			Str("topic", notify.TopicEmail).
			Int("workers", cfg.Notifier.Workers).
			Msg("notifier consumer started")
		if err := cons.Start(ctx, worker.Handle); err != nil {
			logger.Error().Err(err).Msg("consumer exit")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info().Msg("shutting down consumer")
	cancel()
	<-done
}
