package redisx

import "time"

const (
	// idem:booking:create:{buyer_id}:{idempotency_key} -> booking_id
	KeyIdemBookingCreate = "idem:booking:create:%s:%s"

	// booking:{booking_id} -> booking JSON
	KeyBooking = "booking:%s"

	// dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency  = 24 * time.Hour
	TTLBookingCache = 5 * time.Minute
	TTLDedup        = 48 * time.Hour
)
