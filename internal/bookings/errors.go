package bookings

import (
	"errors"
	"fmt"
)

var (
	ErrValidation    = errors.New("invalid booking")
	ErrNotFound      = errors.New("not found")
	ErrStockConflict = errors.New("stock conflict")
	ErrPriceMismatch = errors.New("price mismatch")
	ErrConflict      = errors.New("booking failed due to concurrent access, please retry")
	ErrForbidden     = errors.New("not authorized")
	ErrInvalidState  = errors.New("invalid booking state")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// StockConflictError reports the line item that could not be reserved.
type StockConflictError struct {
	ProductID string
	Title     string
	Requested int
	Available int
	// Unavailable is set when the product is missing or not approved.
	Unavailable bool
}

func (e *StockConflictError) Error() string {
	switch {
	case e.Unavailable && e.Title != "":
		return fmt.Sprintf("%s is not available for booking", e.Title)
	case e.Unavailable:
		return fmt.Sprintf("product %s not found or not approved", e.ProductID)
	default:
		return fmt.Sprintf("Only %d left for %s", e.Available, e.Title)
	}
}

func (e *StockConflictError) Unwrap() error { return ErrStockConflict }
