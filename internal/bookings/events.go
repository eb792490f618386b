package bookings

import (
	kafkax "github.com/ariefcatur/go-campus-bookings/internal/kafka"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const (
	TopicBookingCreated       = "booking.created"
	TopicBookingCancelled     = "booking.cancelled"
	TopicBookingStatusChanged = "booking.status.changed"

	EventBookingCreated       = "BookingCreated"
	EventBookingCancelled     = "BookingCancelled"
	EventBookingStatusChanged = "BookingStatusChanged"
)

// EventPublisher is satisfied by *kafka.Producer.
type EventPublisher interface {
	Publish(topic string, key, value []byte, headers ...kafka.Header)
}

type EventItem struct {
	ProductID string          `json:"product_id"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	SellerID  string          `json:"seller_id"`
}

type BookingEventPayload struct {
	BookingID  string          `json:"booking_id"`
	BuyerID    string          `json:"buyer_id"`
	Status     Status          `json:"status"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Items      []EventItem     `json:"items"`
}

func newEventPayload(b *Booking) BookingEventPayload {
	items := make([]EventItem, 0, len(b.LineItems))
	for _, li := range b.LineItems {
		items = append(items, EventItem{ProductID: li.ProductID, Qty: li.Quantity, UnitPrice: li.UnitPrice, SellerID: li.SellerID})
	}
	return BookingEventPayload{
		BookingID:  b.ID,
		BuyerID:    b.BuyerID,
		Status:     b.Status,
		TotalPrice: b.TotalPrice,
		Items:      items,
	}
}

// PartitionKey keeps every event of one booking on the same partition.
func PartitionKey(bookingID string) []byte { return []byte(bookingID) }

func publishEvent(p EventPublisher, producer, topic, eventType string, b *Booking) {
	env := kafkax.NewEnvelope(eventType, producer, b.ID, newEventPayload(b))
	p.Publish(topic, PartitionKey(b.ID), kafkax.MustMarshal(env), env.Headers()...)
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, []byte, []byte, ...kafka.Header) {}
