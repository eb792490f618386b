// Package users is the read-only view of the account store that the booking
// flow needs: identity snapshots for buyers.
package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-campus-bookings/internal/postgres"
	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("user not found")

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type Directory struct{}

func NewDirectory() *Directory { return &Directory{} }

func (d *Directory) Find(ctx context.Context, q postgres.Querier, id string) (User, error) {
	var u User
	err := q.QueryRow(ctx, `SELECT id, name, email, role FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("find user %s: %w", id, err)
	}
	return u, nil
}
