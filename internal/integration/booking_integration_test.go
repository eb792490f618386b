//go:build integration
// +build integration

package integration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ariefcatur/go-campus-bookings/internal/bookings"
	"github.com/ariefcatur/go-campus-bookings/internal/postgres"
)

func TestBookingIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	pgC, dsn := startPostgres(ctx, t)
	defer terminateContainer(t, pgC)

	require.NoError(t, postgres.RunMigrations(dsn, zerolog.Nop()))
	pool, err := postgres.Connect(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	seed(ctx, t, pool)

	svc := bookings.NewService(pool, bookings.Deps{}, bookings.Options{TxRetries: 3, TxBackoff: 10 * time.Millisecond}, zerolog.Nop())

	t.Run("last unit goes to exactly one buyer", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, buyer := range []string{"buyer-1", "buyer-2"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, errs[i] = svc.Create(ctx, buyer, request("last-one", 1, "40"))
			}()
		}
		wg.Wait()

		var ok, conflicts int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, bookings.ErrStockConflict):
				conflicts++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, 1, conflicts)
		assert.Equal(t, 0, quantity(ctx, t, pool, "last-one"))
	})

	t.Run("many concurrent buyers never oversell", func(t *testing.T) {
		var wg sync.WaitGroup
		var mu sync.Mutex
		booked := 0
		for i := 0; i < 12; i++ {
			buyer := []string{"buyer-1", "buyer-2"}[i%2]
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := svc.Create(ctx, buyer, request("lamp", 2, "200"))
				if err == nil {
					mu.Lock()
					booked += 2
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, bookings.ErrStockConflict)
			}()
		}
		wg.Wait()

		assert.Equal(t, 10, booked)
		assert.Equal(t, 0, quantity(ctx, t, pool, "lamp"))
	})

	t.Run("a failing later item leaves earlier items untouched", func(t *testing.T) {
		before := quantity(ctx, t, pool, "book")
		_, _, err := svc.Create(ctx, "buyer-1", bookings.CreateRequest{
			LineItems: []bookings.LineRequest{
				{ProductID: "book", Quantity: 1},
				{ProductID: "pending", Quantity: 1},
			},
			TotalPrice: dec("35"),
		})
		require.ErrorIs(t, err, bookings.ErrStockConflict)
		assert.Equal(t, before, quantity(ctx, t, pool, "book"))
	})

	t.Run("snapshot survives product edits and cancel restores stock", func(t *testing.T) {
		b, _, err := svc.Create(ctx, "buyer-1", bookings.CreateRequest{
			LineItems:  []bookings.LineRequest{{ProductID: "book", Quantity: 2}},
			TotalPrice: dec("50"),
		})
		require.NoError(t, err)
		require.Equal(t, 8, quantity(ctx, t, pool, "book"))

		_, err = pool.Exec(ctx, `UPDATE products SET title = 'Renamed', price = 999 WHERE id = 'book'`)
		require.NoError(t, err)

		got, err := svc.Get(ctx, b.ID, bookings.Actor{UserID: "buyer-1"})
		require.NoError(t, err)
		assert.Equal(t, "Calculus Book", got.LineItems[0].Title)
		assert.True(t, got.LineItems[0].UnitPrice.Equal(decimal.NewFromInt(25)))
		assert.Equal(t, "seller@uni.edu", got.LineItems[0].SellerEmail)

		_, err = svc.Cancel(ctx, b.ID, bookings.Actor{UserID: "buyer-2"})
		require.ErrorIs(t, err, bookings.ErrForbidden)

		cancelled, err := svc.Cancel(ctx, b.ID, bookings.Actor{UserID: "buyer-1"})
		require.NoError(t, err)
		assert.Equal(t, bookings.StatusCancelled, cancelled.Status)
		assert.Equal(t, 10, quantity(ctx, t, pool, "book"))

		_, err = svc.Cancel(ctx, b.ID, bookings.Actor{UserID: "buyer-1"})
		require.ErrorIs(t, err, bookings.ErrInvalidState)
		assert.Equal(t, 10, quantity(ctx, t, pool, "book"))
	})

	t.Run("idempotency key returns the first booking", func(t *testing.T) {
		req := request("book", 1, "999")
		req.IdempotencyKey = "checkout-42"

		first, replayed, err := svc.Create(ctx, "buyer-2", req)
		require.NoError(t, err)
		assert.False(t, replayed)

		second, replayed, err := svc.Create(ctx, "buyer-2", req)
		require.NoError(t, err)
		assert.True(t, replayed)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 9, quantity(ctx, t, pool, "book"))
	})
}

func request(productID string, qty int, total string) bookings.CreateRequest {
	return bookings.CreateRequest{
		LineItems:  []bookings.LineRequest{{ProductID: productID, Quantity: qty}},
		TotalPrice: dec(total),
	}
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func seed(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	stmts := []string{
		`INSERT INTO users(id, name, email) VALUES
			('seller-1', 'Sam', 'seller@uni.edu'),
			('buyer-1', 'Bea', 'bea@uni.edu'),
			('buyer-2', 'Ben', 'ben@uni.edu')`,
		`INSERT INTO products(id, title, price, quantity, status, seller_id, seller_name, seller_email) VALUES
			('last-one', 'Bike', 40, 1, 'approved', 'seller-1', 'Sam', 'seller@uni.edu'),
			('lamp', 'Desk Lamp', 100, 10, 'approved', 'seller-1', 'Sam', 'seller@uni.edu'),
			('book', 'Calculus Book', 25, 10, 'approved', 'seller-1', 'Sam', 'seller@uni.edu'),
			('pending', 'Poster', 10, 5, 'pending', 'seller-1', 'Sam', 'seller@uni.edu')`,
	}
	for _, s := range stmts {
		_, err := pool.Exec(ctx, s)
		require.NoError(t, err)
	}
}

func quantity(ctx context.Context, t *testing.T, pool *pgxpool.Pool, id string) int {
	t.Helper()
	var q int
	require.NoError(t, pool.QueryRow(ctx, `SELECT quantity FROM products WHERE id = $1`, id).Scan(&q))
	return q
}

func startPostgres(ctx context.Context, t *testing.T) (testcontainers.Container, string) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16",
		Env:          map[string]string{"POSTGRES_PASSWORD": "postgres", "POSTGRES_USER": "postgres", "POSTGRES_DB": "market"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/market?sslmode=disable", host, mappedPort.Port())
	return container, dsn
}

func terminateContainer(t *testing.T, c testcontainers.Container) {
	t.Helper()
	terminateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, c.Terminate(terminateCtx))
}
