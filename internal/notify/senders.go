package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"

	kafkax "github.com/ariefcatur/go-campus-bookings/internal/kafka"
	"github.com/jordan-wright/email"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(topic string, key, value []byte, headers ...kafka.Header)
}

// KafkaSender queues email requests on TopicEmail for cmd/notifier.
type KafkaSender struct {
	pub      Publisher
	producer string
}

func NewKafkaSender(pub Publisher, producer string) *KafkaSender {
	return &KafkaSender{pub: pub, producer: producer}
}

func (s *KafkaSender) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := kafkax.NewEnvelope(EventEmailRequest, s.producer, m.BookingID, m)
	s.pub.Publish(TopicEmail, []byte(m.BookingID), kafkax.MustMarshal(env), env.Headers()...)
	return nil
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPSender delivers mail directly. Port 465 uses implicit TLS.
type SMTPSender struct {
	cfg  SMTPConfig
	send func(e *email.Email) error
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	s := &SMTPSender{cfg: cfg}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	}
	s.send = func(e *email.Email) error {
		if cfg.Port == 465 {
			return e.SendWithTLS(addr, auth, &tls.Config{ServerName: cfg.Host})
		}
		return e.Send(addr, auth)
	}
	return s
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = []string{m.To}
	e.Subject = m.Subject
	e.Text = []byte(m.Body)

	done := make(chan error, 1)
	go func() { done <- s.send(e) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", m.To, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogSender only logs; used when no mail transport is configured.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender { return &LogSender{log: log} }

func (s *LogSender) Send(_ context.Context, m Message) error {
	s.log.Info().Str("kind", string(m.Kind)).Str("to", m.To).Str("subject", m.Subject).Str("booking_id", m.BookingID).Msg("email")
	return nil
}
