package bookings

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-campus-bookings/internal/postgres"
	"github.com/jackc/pgx/v5"
)

const idempotencyIndex = "bookings_buyer_idempotency_key"

const bookingColumns = `id, buyer_id, buyer_name, buyer_email, total_price, status, created_at, updated_at`

// Repo persists bookings and their line item snapshots.
type Repo struct{}

func NewRepo() *Repo { return &Repo{} }

func (r *Repo) Insert(ctx context.Context, q postgres.Querier, b *Booking, idempotencyKey string) error {
	var key *string
	if idempotencyKey != "" {
		key = &idempotencyKey
	}
	_, err := q.Exec(ctx, `
		INSERT INTO bookings(id, buyer_id, buyer_name, buyer_email, total_price, status, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.ID, b.BuyerID, b.BuyerName, b.BuyerEmail, b.TotalPrice, string(b.Status), key, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	for i, li := range b.LineItems {
		_, err = q.Exec(ctx, `
			INSERT INTO booking_items(booking_id, position, product_id, title, unit_price, quantity, seller_id, seller_name, seller_email)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			b.ID, i, li.ProductID, li.Title, li.UnitPrice, li.Quantity, li.SellerID, li.SellerName, li.SellerEmail,
		)
		if err != nil {
			return fmt.Errorf("insert booking item %d: %w", i, err)
		}
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, q postgres.Querier, id string) (*Booking, error) {
	b, err := scanBooking(q.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: booking %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	list := []Booking{b}
	if err := r.attachItems(ctx, q, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (r *Repo) FindByIdempotencyKey(ctx context.Context, q postgres.Querier, buyerID, key string) (*Booking, error) {
	var id string
	err := q.QueryRow(ctx, `SELECT id FROM bookings WHERE buyer_id = $1 AND idempotency_key = $2`, buyerID, key).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: idempotency key %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("find by idempotency key: %w", err)
	}
	return r.Get(ctx, q, id)
}

// ListByBuyer returns the buyer's bookings, newest first.
func (r *Repo) ListByBuyer(ctx context.Context, q postgres.Querier, buyerID string) ([]Booking, error) {
	return r.list(ctx, q, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE buyer_id = $1
		ORDER BY created_at DESC`, buyerID)
}

// ListBySeller returns bookings holding at least one of the seller's items, newest first.
func (r *Repo) ListBySeller(ctx context.Context, q postgres.Querier, sellerID string) ([]Booking, error) {
	return r.list(ctx, q, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE id IN (SELECT booking_id FROM booking_items WHERE seller_id = $1)
		ORDER BY created_at DESC`, sellerID)
}

// UpdateStatus moves a booking from one status to another. It reports false if
// the booking was no longer in status from.
func (r *Repo) UpdateStatus(ctx context.Context, q postgres.Querier, id string, from, to Status) (bool, error) {
	ct, err := q.Exec(ctx, `
		UPDATE bookings SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`,
		id, string(from), string(to),
	)
	if err != nil {
		return false, fmt.Errorf("update booking status: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) list(ctx context.Context, q postgres.Querier, sql string, arg string) ([]Booking, error) {
	rows, err := q.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	out := []Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, q, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) attachItems(ctx context.Context, q postgres.Querier, list []Booking) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	byID := make(map[string]int, len(list))
	for i := range list {
		ids[i] = list[i].ID
		byID[list[i].ID] = i
		list[i].LineItems = []LineItem{}
	}

	rows, err := q.Query(ctx, `
		SELECT booking_id, product_id, title, unit_price, quantity, seller_id, seller_name, seller_email
		FROM booking_items
		WHERE booking_id = ANY($1)
		ORDER BY booking_id, position`, ids)
	if err != nil {
		return fmt.Errorf("load booking items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bookingID string
		var li LineItem
		if err := rows.Scan(&bookingID, &li.ProductID, &li.Title, &li.UnitPrice, &li.Quantity, &li.SellerID, &li.SellerName, &li.SellerEmail); err != nil {
			return fmt.Errorf("scan booking item: %w", err)
		}
		if i, ok := byID[bookingID]; ok {
			list[i].LineItems = append(list[i].LineItems, li)
		}
	}
	return rows.Err()
}

func scanBooking(row pgx.Row) (Booking, error) {
	var b Booking
	var status string
	err := row.Scan(&b.ID, &b.BuyerID, &b.BuyerName, &b.BuyerEmail, &b.TotalPrice, &status, &b.CreatedAt, &b.UpdatedAt)
	b.Status = Status(status)
	return b, err
}
