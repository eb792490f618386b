package bookings

import (
	"fmt"

	"github.com/ariefcatur/go-campus-bookings/internal/inventory"
	"github.com/shopspring/decimal"
)

type PricingMode string

const (
	// PricingAuthoritative snapshots server prices and recomputes the total.
	PricingAuthoritative PricingMode = "authoritative"
	// PricingClient keeps the submitted unit prices and total (price lock-in at cart time).
	PricingClient PricingMode = "client"
)

func ParsePricingMode(s string) (PricingMode, error) {
	switch m := PricingMode(s); m {
	case PricingAuthoritative, PricingClient:
		return m, nil
	}
	return "", fmt.Errorf("unknown pricing mode %q", s)
}

// BuildLineItems zips the requests with the freshly read products, one snapshot
// per request in submitted order. The second result is the authoritative total.
func BuildLineItems(reqs []LineRequest, products map[string]inventory.Product, mode PricingMode) ([]LineItem, decimal.Decimal, error) {
	items := make([]LineItem, 0, len(reqs))
	total := decimal.Zero
	for _, r := range reqs {
		p, ok := products[r.ProductID]
		if !ok {
			return nil, decimal.Zero, fmt.Errorf("%w: product %s", ErrNotFound, r.ProductID)
		}
		qty := decimal.NewFromInt(int64(r.Quantity))
		total = total.Add(p.Price.Mul(qty))

		price := p.Price
		if mode == PricingClient && r.Price != nil {
			price = *r.Price
		}
		items = append(items, LineItem{
			ProductID:   p.ID,
			Title:       p.Title,
			UnitPrice:   price,
			Quantity:    r.Quantity,
			SellerID:    p.SellerID,
			SellerName:  p.SellerName,
			SellerEmail: p.SellerEmail,
		})
	}
	return items, total, nil
}

// SettleTotal decides the stored total. In client mode the claim is kept as is;
// otherwise the authoritative total wins and a claim off by more than tolerance
// is rejected.
func SettleTotal(mode PricingMode, claimed, authoritative, tolerance decimal.Decimal) (decimal.Decimal, error) {
	if mode == PricingClient {
		return claimed, nil
	}
	if claimed.Sub(authoritative).Abs().GreaterThan(tolerance) {
		return decimal.Zero, fmt.Errorf("%w: submitted total %s does not match current total %s",
			ErrPriceMismatch, claimed.StringFixed(2), authoritative.StringFixed(2))
	}
	return authoritative, nil
}
