package kafka

import (
	"testing"
	"time"

	"github.com/ariefcatur/go-campus-bookings/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducer_PublishDropsWhenInboxIsFull(t *testing.T) {
	// Never started, so nothing drains the inbox.
	p := NewProducer([]string{"127.0.0.1:1"}, 1, zerolog.Nop())
	before := testutil.ToFloat64(metrics.KafkaDropped.WithLabelValues("booking.created"))

	p.Publish("booking.created", []byte("b1"), []byte("{}"))

	done := make(chan struct{})
	go func() {
		p.Publish("booking.created", []byte("b2"), []byte("{}"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish held the caller with a full inbox")
	}

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.KafkaDropped.WithLabelValues("booking.created")))
	require.Len(t, p.inbox, 1)
	assert.Equal(t, "b1", string((<-p.inbox).Key))
}
