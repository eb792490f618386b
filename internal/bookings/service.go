// Package bookings reserves stock for a buyer's line items and records the
// result as an immutable booking.
//
// Create runs every conditional stock decrement, the snapshot build and the
// booking insert in one PostgreSQL transaction: either the booking exists with
// its stock taken, or nothing changed. Cancel flips the status first, with a
// conditional update, and then gives stock back item by item on a best-effort
// basis.
package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-campus-bookings/internal/inventory"
	"github.com/ariefcatur/go-campus-bookings/internal/metrics"
	"github.com/ariefcatur/go-campus-bookings/internal/postgres"
	"github.com/ariefcatur/go-campus-bookings/internal/users"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Notifier is told about committed changes. Implementations must not block
// the caller and must swallow their own failures.
type Notifier interface {
	BookingCreated(b Booking)
	BookingCancelled(b Booking)
}

type noopNotifier struct{}

func (noopNotifier) BookingCreated(Booking)   {}
func (noopNotifier) BookingCancelled(Booking) {}

type Options struct {
	Pricing        PricingMode
	PriceTolerance decimal.Decimal
	TxRetries      int
	TxBackoff      time.Duration
	ServiceName    string
}

type Service struct {
	db       postgres.DB
	stock    *inventory.Store
	users    *users.Directory
	repo     *Repo
	notifier Notifier
	events   EventPublisher
	cache    Cache
	opts     Options
	log      zerolog.Logger
	now      func() time.Time
}

// Deps groups the optional collaborators; nil fields fall back to no-ops.
type Deps struct {
	Notifier Notifier
	Events   EventPublisher
	Cache    Cache
}

func NewService(db postgres.DB, deps Deps, opts Options, log zerolog.Logger) *Service {
	if opts.Pricing == "" {
		opts.Pricing = PricingAuthoritative
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "booking-api"
	}
	s := &Service{
		db:       db,
		stock:    inventory.NewStore(),
		users:    users.NewDirectory(),
		repo:     NewRepo(),
		notifier: deps.Notifier,
		events:   deps.Events,
		cache:    deps.Cache,
		opts:     opts,
		log:      log,
		now:      time.Now,
	}
	if s.notifier == nil {
		s.notifier = noopNotifier{}
	}
	if s.events == nil {
		s.events = noopPublisher{}
	}
	if s.cache == nil {
		s.cache = noopCache{}
	}
	return s
}

// Create books the requested line items for buyerID. The second result is true
// when an earlier booking with the same idempotency key was returned instead.
func (s *Service) Create(ctx context.Context, buyerID string, req CreateRequest) (*Booking, bool, error) {
	if err := req.Validate(); err != nil {
		metrics.BookingsRejected.WithLabelValues("validation").Inc()
		return nil, false, err
	}
	if req.IdempotencyKey != "" {
		if b, ok := s.replay(ctx, buyerID, req.IdempotencyKey); ok {
			return b, true, nil
		}
	}

	start := time.Now()
	var booking *Booking
	err := s.withRetry(ctx, "create", func() error {
		var err error
		booking, err = s.createTx(ctx, buyerID, req)
		return err
	})
	metrics.BookingTxDuration.WithLabelValues("create").Observe(time.Since(start).Seconds())

	if err != nil {
		if req.IdempotencyKey != "" && postgres.IsUniqueViolation(err, idempotencyIndex) {
			existing, ferr := s.repo.FindByIdempotencyKey(ctx, s.db, buyerID, req.IdempotencyKey)
			if ferr == nil {
				return existing, true, nil
			}
			err = ferr
		}
		metrics.BookingsRejected.WithLabelValues(rejectReason(err)).Inc()
		return nil, false, err
	}

	metrics.BookingsCreated.Inc()
	s.log.Info().
		Str("booking_id", booking.ID).
		Str("buyer_id", buyerID).
		Int("items", len(booking.LineItems)).
		Str("total", booking.TotalPrice.String()).
		Msg("booking created")

	if req.IdempotencyKey != "" {
		s.cache.RememberIdempotent(ctx, buyerID, req.IdempotencyKey, booking.ID)
	}
	publishEvent(s.events, s.opts.ServiceName, TopicBookingCreated, EventBookingCreated, booking)
	s.notifier.BookingCreated(*booking)
	return booking, false, nil
}

func (s *Service) createTx(ctx context.Context, buyerID string, req CreateRequest) (*Booking, error) {
	var booking *Booking
	err := postgres.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		buyer, err := s.users.Find(ctx, tx, buyerID)
		if err != nil {
			if errors.Is(err, users.ErrNotFound) {
				return fmt.Errorf("%w: buyer %s", ErrNotFound, buyerID)
			}
			return err
		}

		for _, li := range req.LineItems {
			ok, err := s.stock.Decrement(ctx, tx, li.ProductID, li.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return s.stockConflict(ctx, tx, li)
			}
		}

		products, err := s.stock.FindMany(ctx, tx, req.productIDs())
		if err != nil {
			return err
		}
		items, authoritative, err := BuildLineItems(req.LineItems, products, s.opts.Pricing)
		if err != nil {
			return err
		}
		total, err := SettleTotal(s.opts.Pricing, *req.TotalPrice, authoritative, s.opts.PriceTolerance)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		b := &Booking{
			ID:         uuid.NewString(),
			BuyerID:    buyer.ID,
			BuyerName:  buyer.Name,
			BuyerEmail: buyer.Email,
			LineItems:  items,
			TotalPrice: total,
			Status:     StatusBooked,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.repo.Insert(ctx, tx, b, req.IdempotencyKey); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// stockConflict explains why a decrement matched no row.
func (s *Service) stockConflict(ctx context.Context, q postgres.Querier, li LineRequest) error {
	p, err := s.stock.Probe(ctx, q, li.ProductID)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			return &StockConflictError{ProductID: li.ProductID, Requested: li.Quantity, Unavailable: true}
		}
		return err
	}
	if p.Status != inventory.StatusApproved {
		return &StockConflictError{ProductID: p.ID, Title: p.Title, Requested: li.Quantity, Unavailable: true}
	}
	return &StockConflictError{ProductID: p.ID, Title: p.Title, Requested: li.Quantity, Available: p.Quantity}
}

func (s *Service) replay(ctx context.Context, buyerID, key string) (*Booking, bool) {
	if id, ok := s.cache.IdempotentBooking(ctx, buyerID, key); ok {
		if b, err := s.repo.Get(ctx, s.db, id); err == nil && b.BuyerID == buyerID {
			return b, true
		}
	}
	b, err := s.repo.FindByIdempotencyKey(ctx, s.db, buyerID, key)
	if err != nil {
		return nil, false
	}
	return b, true
}

// withRetry reruns fn while it fails with a write conflict, up to TxRetries
// extra attempts. A conflict that survives the retries becomes ErrConflict.
func (s *Service) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !postgres.IsRetryable(err) || attempt >= s.opts.TxRetries {
			break
		}
		metrics.BookingTxRetries.Inc()
		s.log.Warn().Err(err).Str("op", op).Int("attempt", attempt+1).Msg("write conflict, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * s.opts.TxBackoff):
		}
	}
	if postgres.IsRetryable(err) {
		s.log.Warn().Err(err).Str("op", op).Msg("write conflict, giving up")
		return ErrConflict
	}
	return err
}

// Cancel cancels a booking on behalf of its buyer and restores stock.
func (s *Service) Cancel(ctx context.Context, bookingID string, actor Actor) (*Booking, error) {
	b, err := s.repo.Get(ctx, s.db, bookingID)
	if err != nil {
		return nil, err
	}
	if b.BuyerID != actor.UserID {
		return nil, fmt.Errorf("%w: only the buyer can cancel this booking", ErrForbidden)
	}
	if b.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: cannot cancel a %s booking", ErrInvalidState, b.Status)
	}

	ok, err := s.repo.UpdateStatus(ctx, s.db, b.ID, b.Status, StatusCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Someone else moved it first; the winner owns the stock restoration.
		return nil, fmt.Errorf("%w: booking %s changed concurrently", ErrInvalidState, b.ID)
	}
	b.Status = StatusCancelled
	b.UpdatedAt = s.now().UTC()
	metrics.BookingStatusChanges.WithLabelValues(string(StatusCancelled)).Inc()

	s.restoreStock(context.WithoutCancel(ctx), b)

	s.log.Info().Str("booking_id", b.ID).Str("buyer_id", actor.UserID).Msg("booking cancelled")
	s.refreshCache(ctx, b)
	publishEvent(s.events, s.opts.ServiceName, TopicBookingCancelled, EventBookingCancelled, b)
	s.notifier.BookingCancelled(*b)
	return b, nil
}

// restoreStock is advisory: a missing product is skipped, a failed item is
// logged, and neither affects the cancellation.
func (s *Service) restoreStock(ctx context.Context, b *Booking) {
	for _, li := range b.LineItems {
		ok, err := s.stock.Increment(ctx, s.db, li.ProductID, li.Quantity)
		switch {
		case err != nil:
			metrics.StockRestoreFailures.Inc()
			s.log.Error().Err(err).Str("booking_id", b.ID).Str("product_id", li.ProductID).Int("qty", li.Quantity).Msg("stock restore failed")
		case !ok:
			s.log.Info().Str("booking_id", b.ID).Str("product_id", li.ProductID).Msg("product gone, stock restore skipped")
		}
	}
}

// AdvanceStatus drives the fulfilment transitions (Dispatched, Delivered).
// Cancellation has its own path because it gives stock back.
func (s *Service) AdvanceStatus(ctx context.Context, bookingID string, to Status, actor Actor) (*Booking, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", ErrForbidden)
	}
	if !to.Valid() {
		return nil, invalid("unknown status %q", to)
	}
	if to == StatusCancelled {
		return nil, fmt.Errorf("%w: use cancel to cancel a booking", ErrInvalidState)
	}

	b, err := s.repo.Get(ctx, s.db, bookingID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(b.Status, to) {
		return nil, fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidState, b.Status, to)
	}
	ok, err := s.repo.UpdateStatus(ctx, s.db, b.ID, b.Status, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: booking %s changed concurrently", ErrInvalidState, b.ID)
	}
	b.Status = to
	b.UpdatedAt = s.now().UTC()
	metrics.BookingStatusChanges.WithLabelValues(string(to)).Inc()

	s.refreshCache(ctx, b)
	publishEvent(s.events, s.opts.ServiceName, TopicBookingStatusChanged, EventBookingStatusChanged, b)
	return b, nil
}

// refreshCache runs after a status change. Only terminal bookings are cached:
// they can no longer change, so a reader racing the update cannot put back a
// stale copy.
func (s *Service) refreshCache(ctx context.Context, b *Booking) {
	if b.Status.IsTerminal() {
		s.cache.StoreBooking(ctx, b)
		return
	}
	s.cache.Forget(ctx, b.ID)
}

// Get returns a booking to its buyer, to a seller with an item in it, or to an admin.
func (s *Service) Get(ctx context.Context, bookingID string, actor Actor) (*Booking, error) {
	b, ok := s.cache.Booking(ctx, bookingID)
	if !ok {
		var err error
		b, err = s.repo.Get(ctx, s.db, bookingID)
		if err != nil {
			return nil, err
		}
		if b.Status.IsTerminal() {
			s.cache.StoreBooking(ctx, b)
		}
	}
	if !actor.CanRead(b) {
		return nil, fmt.Errorf("%w: booking %s", ErrForbidden, bookingID)
	}
	return b, nil
}

// ListMine lists the buyer's bookings, newest first.
func (s *Service) ListMine(ctx context.Context, buyerID string) ([]Booking, error) {
	return s.repo.ListByBuyer(ctx, s.db, buyerID)
}

// ListSold lists bookings containing the seller's items, trimmed to those items.
func (s *Service) ListSold(ctx context.Context, sellerID string) ([]Booking, error) {
	list, err := s.repo.ListBySeller(ctx, s.db, sellerID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i] = list[i].ForSeller(sellerID)
	}
	return list, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrStockConflict):
		return "stock"
	case errors.Is(err, ErrPriceMismatch):
		return "price"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
