package notify

import (
	"context"
	"fmt"

	kafkax "github.com/ariefcatur/go-campus-bookings/internal/kafka"
	"github.com/ariefcatur/go-campus-bookings/internal/metrics"
	"github.com/ariefcatur/go-campus-bookings/internal/redisx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Worker consumes email requests and delivers them through a Sender.
type Worker struct {
	sender  Sender
	rdb     redis.Cmdable
	service string
	log     zerolog.Logger
}

func NewWorker(sender Sender, rdb redis.Cmdable, service string, log zerolog.Logger) *Worker {
	return &Worker{sender: sender, rdb: rdb, service: service, log: log}
}

// Handle is a kafka.Handler. Returning an error leaves the offset uncommitted.
func (w *Worker) Handle(ctx context.Context, m kafka.Message) error {
	if !hasEventType(m, EventEmailRequest) {
		return nil
	}
	env, err := kafkax.UnmarshalEnvelope(m.Value)
	if err != nil {
		w.log.Warn().Err(err).Int64("offset", m.Offset).Msg("dropping undecodable message")
		return nil
	}
	if env.EventType != EventEmailRequest {
		return nil
	}
	msg, err := kafkax.UnwrapPayload[Message](env.Payload)
	if err != nil {
		w.log.Warn().Err(err).Str("event_id", env.EventID).Msg("dropping undecodable payload")
		return nil
	}

	key := fmt.Sprintf(redisx.KeyDedup, w.service, env.EventID)
	first, err := redisx.Claim(ctx, w.rdb, key, redisx.TTLDedup)
	if err != nil {
		return fmt.Errorf("dedup claim: %w", err)
	}
	if !first {
		w.log.Debug().Str("event_id", env.EventID).Msg("duplicate email request skipped")
		return nil
	}

	if err := w.sender.Send(ctx, msg); err != nil {
		// Let a redelivery try again.
		_ = w.rdb.Del(ctx, key).Err()
		metrics.Notifications.WithLabelValues(string(msg.Kind), "failed").Inc()
		return err
	}
	metrics.Notifications.WithLabelValues(string(msg.Kind), "sent").Inc()
	w.log.Info().Str("event_id", env.EventID).Str("booking_id", msg.BookingID).Str("kind", string(msg.Kind)).Msg("email sent")
	return nil
}

func hasEventType(m kafka.Message, want string) bool {
	for _, h := range m.Headers {
		if h.Key == "x-event-type" {
			return string(h.Value) == want
		}
	}
	// no routing headers: the envelope decides
	return true
}
