package bookings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-campus-bookings/internal/redisx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Cache is a read-through accelerator. PostgreSQL stays the source of truth,
// so every method degrades to a miss or a no-op on failure.
type Cache interface {
	Booking(ctx context.Context, id string) (*Booking, bool)
	StoreBooking(ctx context.Context, b *Booking)
	Forget(ctx context.Context, id string)
	IdempotentBooking(ctx context.Context, buyerID, key string) (string, bool)
	RememberIdempotent(ctx context.Context, buyerID, key, bookingID string)
}

type RedisCache struct {
	rdb redis.Cmdable
	log zerolog.Logger
}

func NewRedisCache(rdb redis.Cmdable, log zerolog.Logger) *RedisCache {
	return &RedisCache{rdb: rdb, log: log}
}

func (c *RedisCache) Booking(ctx context.Context, id string) (*Booking, bool) {
	raw, err := c.rdb.Get(ctx, fmt.Sprintf(redisx.KeyBooking, id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Debug().Err(err).Str("booking_id", id).Msg("booking cache read failed")
		}
		return nil, false
	}
	var b Booking
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, false
	}
	return &b, true
}

func (c *RedisCache) StoreBooking(ctx context.Context, b *Booking) {
	raw, err := json.Marshal(b)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, fmt.Sprintf(redisx.KeyBooking, b.ID), raw, redisx.TTLBookingCache).Err(); err != nil {
		c.log.Debug().Err(err).Str("booking_id", b.ID).Msg("booking cache write failed")
	}
}

func (c *RedisCache) Forget(ctx context.Context, id string) {
	if err := c.rdb.Del(ctx, fmt.Sprintf(redisx.KeyBooking, id)).Err(); err != nil {
		c.log.Warn().Err(err).Str("booking_id", id).Msg("booking cache invalidation failed")
	}
}

func (c *RedisCache) IdempotentBooking(ctx context.Context, buyerID, key string) (string, bool) {
	id, err := c.rdb.Get(ctx, fmt.Sprintf(redisx.KeyIdemBookingCreate, buyerID, key)).Result()
	if err != nil || id == "" {
		return "", false
	}
	return id, true
}

func (c *RedisCache) RememberIdempotent(ctx context.Context, buyerID, key, bookingID string) {
	k := fmt.Sprintf(redisx.KeyIdemBookingCreate, buyerID, key)
	if err := c.rdb.Set(ctx, k, bookingID, redisx.TTLIdempotency).Err(); err != nil {
		c.log.Debug().Err(err).Str("booking_id", bookingID).Msg("idempotency write failed")
	}
}

type noopCache struct{}

func (noopCache) Booking(context.Context, string) (*Booking, bool) { return nil, false }
func (noopCache) StoreBooking(context.Context, *Booking) {}
func (noopCache) Forget(context.Context, string) {}
func (noopCache) IdempotentBooking(context.Context, string, string) (string, bool) { return "", false }
func (noopCache) RememberIdempotent(context.Context, string, string, string) {}
