package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepo_InsertKeepsSubmittedOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	b := &Booking{
		ID: "b1", BuyerID: "u1", BuyerName: "Bea", BuyerEmail: "bea@uni.edu",
		TotalPrice: decimal.NewFromInt(30), Status: StatusBooked, CreatedAt: now, UpdatedAt: now,
		LineItems: []LineItem{
			{ProductID: "p2", Title: "Book", UnitPrice: decimal.NewFromInt(10), Quantity: 1, SellerID: "s2"},
			{ProductID: "p1", Title: "Lamp", UnitPrice: decimal.NewFromInt(20), Quantity: 1, SellerID: "s1"},
		},
	}

	var noKey *string
	mock.ExpectExec(`INSERT INTO bookings`).
		WithArgs("b1", "u1", "Bea", "bea@uni.edu", pgxmock.AnyArg(), "Booked", noKey, now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO booking_items`).
		WithArgs("b1", 0, "p2", "Book", pgxmock.AnyArg(), 1, "s2", "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO booking_items`).
		WithArgs("b1", 1, "p1", "Lamp", pgxmock.AnyArg(), 1, "s1", "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewRepo().Insert(context.Background(), mock, b, ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_UpdateStatusIsConditional(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`WHERE id = \$1 AND status = \$2`).WithArgs("b1", "Booked", "Cancelled").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := NewRepo().UpdateStatus(context.Background(), mock, "b1", StatusBooked, StatusCancelled)
	require.NoError(t, err)
	assert.False(t, ok)
}
