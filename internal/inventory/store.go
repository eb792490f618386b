// Package inventory owns the only shared mutable resource of the booking
// flow: products.quantity. All writes go through a single conditional UPDATE
// so that concurrent bookings can never drive a quantity below zero.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-campus-bookings/internal/postgres"
	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("product not found")

const productColumns = `id, title, price, quantity, status, seller_id, seller_name, seller_email, updated_at`

// Store is stateless; callers pass the pool or the transaction to run on.
type Store struct{}

func NewStore() *Store { return &Store{} }

// Decrement removes qty units from an approved product, atomically with respect
// to concurrent callers. It reports false when the product is missing, not
// approved, or has fewer than qty units left.
func (s *Store) Decrement(ctx context.Context, q postgres.Querier, productID string, qty int) (bool, error) {
	ct, err := q.Exec(ctx, `
		UPDATE products
		SET quantity = quantity - $2, updated_at = now()
		WHERE id = $1 AND status = 'approved' AND quantity >= $2`,
		productID, qty,
	)
	if err != nil {
		return false, fmt.Errorf("decrement %s: %w", productID, err)
	}
	return ct.RowsAffected() == 1, nil
}

// Increment gives qty units back. It reports false when the product no longer exists.
func (s *Store) Increment(ctx context.Context, q postgres.Querier, productID string, qty int) (bool, error) {
	ct, err := q.Exec(ctx, `
		UPDATE products
		SET quantity = quantity + $2, updated_at = now()
		WHERE id = $1`,
		productID, qty,
	)
	if err != nil {
		return false, fmt.Errorf("increment %s: %w", productID, err)
	}
	return ct.RowsAffected() == 1, nil
}

// Probe reads a single product regardless of its status.
func (s *Store) Probe(ctx context.Context, q postgres.Querier, productID string) (Product, error) {
	var p Product
	err := q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, productID).
		Scan(&p.ID, &p.Title, &p.Price, &p.Quantity, &p.Status, &p.SellerID, &p.SellerName, &p.SellerEmail, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("probe %s: %w", productID, err)
	}
	return p, nil
}

// FindMany returns the products with the given ids keyed by id. Unknown ids are
// simply absent from the result.
func (s *Store) FindMany(ctx context.Context, q postgres.Querier, ids []string) (map[string]Product, error) {
	out := make(map[string]Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := q.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Price, &p.Quantity, &p.Status, &p.SellerID, &p.SellerName, &p.SellerEmail, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}
