package notify

import (
	"context"
	"sync"
	"time"

	"github.com/ariefcatur/go-campus-bookings/internal/bookings"
	"github.com/ariefcatur/go-campus-bookings/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Dispatcher implements bookings.Notifier. Each call returns immediately and
// sends in the background on a context detached from the request.
type Dispatcher struct {
	sender     Sender
	recipients Recipients
	timeout    time.Duration
	log        zerolog.Logger
	wg         sync.WaitGroup
}

var _ bookings.Notifier = (*Dispatcher)(nil)

func NewDispatcher(sender Sender, r Recipients, timeout time.Duration, log zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{sender: sender, recipients: r, timeout: timeout, log: log}
}

func (d *Dispatcher) BookingCreated(b bookings.Booking) {
	d.dispatch(Created(b, d.recipients))
}

func (d *Dispatcher) BookingCancelled(b bookings.Booking) {
	d.dispatch(Cancelled(b, d.recipients))
}

// Wait blocks until every background send has finished. Called on shutdown.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) dispatch(msgs []Message) {
	if len(msgs) == 0 {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		var g errgroup.Group
		for _, m := range msgs {
			g.Go(func() error {
				d.send(ctx, m)
				return nil
			})
		}
		_ = g.Wait()
	}()
}

func (d *Dispatcher) send(ctx context.Context, m Message) {
	if err := d.sender.Send(ctx, m); err != nil {
		metrics.Notifications.WithLabelValues(string(m.Kind), "failed").Inc()
		d.log.Error().Err(err).Str("booking_id", m.BookingID).Str("kind", string(m.Kind)).Str("to", m.To).Msg("notification failed")
		return
	}
	metrics.Notifications.WithLabelValues(string(m.Kind), "sent").Inc()
}
