package bookings

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LineRequest is one entry of a booking request as submitted by the buyer.
type LineRequest struct {
	ProductID string           `json:"productId"`
	Quantity  int              `json:"quantity"`
	Price     *decimal.Decimal `json:"price,omitempty"`
}

type CreateRequest struct {
	LineItems      []LineRequest    `json:"lineItems"`
	TotalPrice     *decimal.Decimal `json:"totalPrice"`
	IdempotencyKey string           `json:"-"`
}

func (r CreateRequest) Validate() error {
	if len(r.LineItems) == 0 {
		return invalid("lineItems is required")
	}
	for i, li := range r.LineItems {
		if strings.TrimSpace(li.ProductID) == "" {
			return invalid("lineItems[%d].productId is required", i)
		}
		if li.Quantity < 1 {
			return invalid("lineItems[%d].quantity must be at least 1", i)
		}
		if li.Price != nil && li.Price.IsNegative() {
			return invalid("lineItems[%d].price must not be negative", i)
		}
	}
	if r.TotalPrice == nil {
		return invalid("totalPrice is required")
	}
	if !r.TotalPrice.IsPositive() {
		return invalid("totalPrice must be greater than 0")
	}
	return nil
}

func (r CreateRequest) productIDs() []string {
	seen := make(map[string]struct{}, len(r.LineItems))
	ids := make([]string, 0, len(r.LineItems))
	for _, li := range r.LineItems {
		if _, ok := seen[li.ProductID]; ok {
			continue
		}
		seen[li.ProductID] = struct{}{}
		ids = append(ids, li.ProductID)
	}
	return ids
}

// LineItem is frozen at booking time and never follows later product edits.
type LineItem struct {
	ProductID   string          `json:"productId"`
	Title       string          `json:"title"`
	UnitPrice   decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	SellerID    string          `json:"sellerId"`
	SellerName  string          `json:"sellerName"`
	SellerEmail string          `json:"sellerEmail"`
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type Booking struct {
	ID         string          `json:"id"`
	BuyerID    string          `json:"buyerId"`
	BuyerName  string          `json:"buyerName"`
	BuyerEmail string          `json:"buyerEmail"`
	LineItems  []LineItem      `json:"lineItems"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Status     Status          `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func (b *Booking) HasSeller(sellerID string) bool {
	for _, li := range b.LineItems {
		if li.SellerID == sellerID {
			return true
		}
	}
	return false
}

// ForSeller returns a copy of b that only lists sellerID's line items.
func (b Booking) ForSeller(sellerID string) Booking {
	items := make([]LineItem, 0, len(b.LineItems))
	for _, li := range b.LineItems {
		if li.SellerID == sellerID {
			items = append(items, li)
		}
	}
	b.LineItems = items
	return b
}

// SellerGroup is the part of a booking that concerns one seller.
type SellerGroup struct {
	SellerID    string
	SellerName  string
	SellerEmail string
	Items       []LineItem
}

// GroupBySeller splits the line items per seller, in order of first appearance.
func (b *Booking) GroupBySeller() []SellerGroup {
	idx := map[string]int{}
	var out []SellerGroup
	for _, li := range b.LineItems {
		i, ok := idx[li.SellerID]
		if !ok {
			i = len(out)
			idx[li.SellerID] = i
			out = append(out, SellerGroup{SellerID: li.SellerID, SellerName: li.SellerName, SellerEmail: li.SellerEmail})
		}
		out[i].Items = append(out[i].Items, li)
	}
	return out
}

const RoleAdmin = "admin"

// Actor is the authenticated caller.
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// CanRead: the buyer, any seller with an item in the booking, or an admin.
func (a Actor) CanRead(b *Booking) bool {
	return a.IsAdmin() || a.UserID == b.BuyerID || b.HasSeller(a.UserID)
}
