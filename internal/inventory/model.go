package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Product carries a denormalized copy of its seller's name and email.
type Product struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Status      Status          `json:"status"`
	SellerID    string          `json:"sellerId"`
	SellerName  string          `json:"sellerName"`
	SellerEmail string          `json:"sellerEmail"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}
