package notify

import (
	"fmt"
	"strings"

	"github.com/ariefcatur/go-campus-bookings/internal/bookings"
)

const brand = "RebuZZar"

// Recipients that are not the buyer or a seller.
type Recipients struct {
	AdminEmail  string
	AdminAlerts bool
}

func (r Recipients) admin() bool { return r.AdminAlerts && r.AdminEmail != "" }

// Created builds the buyer confirmation, one message per seller listing only
// that seller's items, and the admin alert.
func Created(b bookings.Booking, r Recipients) []Message {
	var out []Message
	if b.BuyerEmail != "" {
		out = append(out, Message{
			Kind:      KindBuyerConfirmation,
			BookingID: b.ID,
			To:        b.BuyerEmail,
			Subject:   "Booking Confirmation - " + brand,
			Body: fmt.Sprintf("Hi %s,\n\nYour booking is confirmed.\nBooking ID: %s\n\nItems booked:\n%s\nTotal: %s\n\nWe will notify you with delivery / pickup details shortly.\n",
				b.BuyerName, b.ID, itemLines(b.LineItems, false), b.TotalPrice.StringFixed(2)),
		})
	}
	for _, g := range b.GroupBySeller() {
		if g.SellerEmail == "" {
			continue
		}
		out = append(out, Message{
			Kind:      KindSellerBooked,
			BookingID: b.ID,
			To:        g.SellerEmail,
			Subject:   "Your item(s) have been booked on " + brand,
			Body: fmt.Sprintf("Hi %s,\n\nThe following item(s) of yours have been booked:\n%s\nBooking ID: %s\nWe will notify you soon with the pickup date and time.\n",
				nameOr(g.SellerName, "Seller"), itemLines(g.Items, false), b.ID),
		})
	}
	if r.admin() {
		out = append(out, Message{
			Kind:      KindAdminBooked,
			BookingID: b.ID,
			To:        r.AdminEmail,
			Subject:   fmt.Sprintf("New Booking (%s) - %d item(s)", b.BuyerName, len(b.LineItems)),
			Body: fmt.Sprintf("Buyer: %s <%s>\nBooking ID: %s\nTotal: %s\n\nItems:\n%s",
				b.BuyerName, b.BuyerEmail, b.ID, b.TotalPrice.StringFixed(2), itemLines(b.LineItems, true)),
		})
	}
	return out
}

// Cancelled mirrors Created for a cancellation.
func Cancelled(b bookings.Booking, r Recipients) []Message {
	var out []Message
	if b.BuyerEmail != "" {
		out = append(out, Message{
			Kind:      KindBuyerCancelled,
			BookingID: b.ID,
			To:        b.BuyerEmail,
			Subject:   "Booking Cancelled - " + brand,
			Body: fmt.Sprintf("Hello %s,\n\nYour booking %s has been cancelled.\n\n%s",
				b.BuyerName, b.ID, itemLines(b.LineItems, false)),
		})
	}
	for _, g := range b.GroupBySeller() {
		if g.SellerEmail == "" {
			continue
		}
		out = append(out, Message{
			Kind:      KindSellerCancelled,
			BookingID: b.ID,
			To:        g.SellerEmail,
			Subject:   "Booking Cancelled for Your Item - " + brand,
			Body: fmt.Sprintf("Hello %s,\n\nThe following item(s) were cancelled:\n%s\nYour item is now available again.\n",
				nameOr(g.SellerName, "Seller"), itemLines(g.Items, false)),
		})
	}
	if r.admin() {
		out = append(out, Message{
			Kind:      KindAdminCancelled,
			BookingID: b.ID,
			To:        r.AdminEmail,
			Subject:   "Booking Cancelled (Admin Alert)",
			Body: fmt.Sprintf("Buyer: %s <%s>\nBooking ID: %s\n\n%s",
				b.BuyerName, b.BuyerEmail, b.ID, itemLines(b.LineItems, true)),
		})
	}
	return out
}

func itemLines(items []bookings.LineItem, withSeller bool) string {
	var sb strings.Builder
	for _, li := range items {
		fmt.Fprintf(&sb, "- %s x%d @ %s", li.Title, li.Quantity, li.UnitPrice.StringFixed(2))
		if withSeller {
			fmt.Fprintf(&sb, " (seller: %s <%s>)", nameOr(li.SellerName, "N/A"), nameOr(li.SellerEmail, "N/A"))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func nameOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
