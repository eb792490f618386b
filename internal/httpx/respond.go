package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-campus-bookings/internal/bookings"
	"github.com/rs/zerolog"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes. Anything unknown is a 500
// whose detail only goes to the log.
func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, bookings.ErrValidation), errors.Is(err, bookings.ErrInvalidState):
		code = http.StatusBadRequest
	case errors.Is(err, bookings.ErrForbidden):
		code = http.StatusForbidden
	case errors.Is(err, bookings.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, bookings.ErrStockConflict),
		errors.Is(err, bookings.ErrPriceMismatch),
		errors.Is(err, bookings.ErrConflict):
		code = http.StatusConflict
	}
	if code == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
		writeJSON(w, code, map[string]string{"message": "Server error"})
		return
	}
	writeJSON(w, code, map[string]string{"message": err.Error()})
}
