// Package notify turns committed booking changes into emails for the buyer,
// each seller involved and the marketplace admin. Delivery is best effort:
// failures are logged and counted, never returned to the booking flow.
package notify

import "context"

const (
	TopicEmail        = "notification.email"
	EventEmailRequest = "EmailRequested"
)

type Kind string

const (
	KindBuyerConfirmation Kind = "buyer_confirmation"
	KindSellerBooked      Kind = "seller_booked"
	KindAdminBooked       Kind = "admin_booked"
	KindBuyerCancelled    Kind = "buyer_cancelled"
	KindSellerCancelled   Kind = "seller_cancelled"
	KindAdminCancelled    Kind = "admin_cancelled"
)

type Message struct {
	Kind      Kind   `json:"kind"`
	BookingID string `json:"booking_id"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// Sender hands one message to a transport.
type Sender interface {
	Send(ctx context.Context, m Message) error
}
