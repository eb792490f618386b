package kafka

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/ariefcatur/go-campus-bookings/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Handler must return nil only when the message was processed and its offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r        *kafka.Reader
	workers  int
	attempts int
	backoff  time.Duration
	log      zerolog.Logger
}

func NewConsumer(brokers []string, group, topic string, workers int, log zerolog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers, attempts: 3, backoff: 500 * time.Millisecond, log: log}
}

// Start fetches until ctx is done. Messages with the same key always go to the
// same worker, so per-booking order is kept. On return every in-flight message
// has been handled and the reader is closed.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	queues := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan kafka.Message, 64)
		wg.Add(1)
		go func(q <-chan kafka.Message) {
			defer wg.Done()
			for m := range q {
				c.process(ctx, h, m)
			}
		}(queues[i])
	}
	stop := func() {
		for _, q := range queues {
			close(q)
		}
		wg.Wait()
		_ = c.r.Close()
	}

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			stop()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case queues[c.slot(m.Key)] <- m:
		case <-ctx.Done():
			stop()
			return nil
		}
	}
}

func (c *Consumer) slot(key []byte) int {
	if len(key) == 0 || c.workers == 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write(key)
	return int(h.Sum32() % uint32(c.workers))
}

// process retries h a few times. A message that still fails is not committed,
// but a later offset of the same partition committed by another worker moves
// the group past it, so it is logged and counted as lost.
func (c *Consumer) process(ctx context.Context, h Handler, m kafka.Message) {
	var err error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err = h(ctx, m); err == nil {
			break
		}
		c.log.Warn().Err(err).
			Str("topic", m.Topic).Int("partition", m.Partition).Int64("offset", m.Offset).
			Int("attempt", attempt).Msg("handler failed")
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * c.backoff):
		}
	}
	if err != nil {
		metrics.KafkaGivenUp.WithLabelValues(m.Topic).Inc()
		c.log.Error().Err(err).Str("topic", m.Topic).Int("partition", m.Partition).Int64("offset", m.Offset).Msg("giving up on message")
		return
	}
	if err := c.r.CommitMessages(context.WithoutCancel(ctx), m); err != nil {
		c.log.Warn().Err(err).Int64("offset", m.Offset).Msg("commit failed")
	}
}
