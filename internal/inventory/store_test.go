package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productCols = []string{"id", "title", "price", "quantity", "status", "seller_id", "seller_name", "seller_email", "updated_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestStore_Decrement(t *testing.T) {
	ctx := context.Background()

	t.Run("matching row is decremented", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`UPDATE products\s+SET quantity = quantity - \$2`).
			WithArgs("p1", 2).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		ok, err := NewStore().Decrement(ctx, mock, "p1", 2)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no matching row reports false", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`AND status = 'approved' AND quantity >= \$2`).
			WithArgs("p1", 5).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		ok, err := NewStore().Decrement(ctx, mock, "p1", 5)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("driver error is wrapped", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`UPDATE products`).WithArgs("p1", 1).WillReturnError(errors.New("conn reset"))

		_, err := NewStore().Decrement(ctx, mock, "p1", 1)
		assert.ErrorContains(t, err, "decrement p1")
	})
}

func TestStore_Increment(t *testing.T) {
	ctx := context.Background()
	mock := newMock(t)
	mock.ExpectExec(`SET quantity = quantity \+ \$2`).WithArgs("p1", 3).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`SET quantity = quantity \+ \$2`).WithArgs("gone", 1).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := NewStore().Increment(ctx, mock, "p1", 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = NewStore().Increment(ctx, mock, "gone", 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Probe(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	mock := newMock(t)
	mock.ExpectQuery(`FROM products WHERE id = \$1`).WithArgs("p1").
		WillReturnRows(pgxmock.NewRows(productCols).
			AddRow("p1", "Widget", decimal.NewFromInt(100), 2, StatusApproved, "s1", "Sam", "sam@uni.edu", now))
	mock.ExpectQuery(`FROM products WHERE id = \$1`).WithArgs("missing").WillReturnError(pgx.ErrNoRows)

	p, err := NewStore().Probe(ctx, mock, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Widget", p.Title)
	assert.Equal(t, 2, p.Quantity)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(100)))

	_, err = NewStore().Probe(ctx, mock, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_FindMany(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	mock := newMock(t)
	mock.ExpectQuery(`WHERE id = ANY\(\$1\)`).WithArgs([]string{"p1", "p2", "p3"}).
		WillReturnRows(pgxmock.NewRows(productCols).
			AddRow("p1", "Widget", decimal.NewFromInt(100), 0, StatusApproved, "s1", "Sam", "sam@uni.edu", now).
			AddRow("p2", "Lamp", decimal.RequireFromString("45.50"), 4, StatusApproved, "s2", "Ria", "ria@uni.edu", now))

	got, err := NewStore().FindMany(ctx, mock, []string{"p1", "p2", "p3"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Sam", got["p1"].SellerName)
	assert.Equal(t, "ria@uni.edu", got["p2"].SellerEmail)
	_, ok := got["p3"]
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FindManyEmpty(t *testing.T) {
	mock := newMock(t)

	got, err := NewStore().FindMany(context.Background(), mock, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
