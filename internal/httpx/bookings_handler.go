package httpx

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ariefcatur/go-campus-bookings/internal/bookings"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// BookingService is implemented by *bookings.Service.
type BookingService interface {
	Create(ctx context.Context, buyerID string, req bookings.CreateRequest) (*bookings.Booking, bool, error)
	Cancel(ctx context.Context, bookingID string, actor bookings.Actor) (*bookings.Booking, error)
	AdvanceStatus(ctx context.Context, bookingID string, to bookings.Status, actor bookings.Actor) (*bookings.Booking, error)
	Get(ctx context.Context, bookingID string, actor bookings.Actor) (*bookings.Booking, error)
	ListMine(ctx context.Context, buyerID string) ([]bookings.Booking, error)
	ListSold(ctx context.Context, sellerID string) ([]bookings.Booking, error)
}

type BookingsHandler struct {
	Service BookingService
	Auth    *Authenticator
	Log     zerolog.Logger
}

type statusReq struct {
	Status bookings.Status `json:"status"`
}

type cancelResp struct {
	Message string            `json:"message"`
	Booking *bookings.Booking `json:"booking"`
}

func (h *BookingsHandler) Register(r chi.Router) {
	r.Route("/bookings", func(r chi.Router) {
		r.Use(h.Auth.Middleware)
		r.Post("/", h.create)
		r.Get("/mine", h.listMine)
		r.Get("/sold", h.listSold)
		r.Get("/{id}", h.get)
		r.Put("/{id}/cancel", h.cancel)
		r.Put("/{id}/status", h.advance)
	})
}

func (h *BookingsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req bookings.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid json"})
		return
	}
	req.IdempotencyKey = r.Header.Get("Idempotency-Key")

	actor := actorFrom(r.Context())
	b, replayed, err := h.Service.Create(r.Context(), actor.UserID, req)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if replayed {
		w.Header().Set("Idempotent-Replayed", "true")
		writeJSON(w, http.StatusOK, b)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *BookingsHandler) listMine(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListMine(r.Context(), actorFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *BookingsHandler) listSold(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListSold(r.Context(), actorFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *BookingsHandler) get(w http.ResponseWriter, r *http.Request) {
	b, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"), actorFrom(r.Context()))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *BookingsHandler) cancel(w http.ResponseWriter, r *http.Request) {
	b, err := h.Service.Cancel(r.Context(), chi.URLParam(r, "id"), actorFrom(r.Context()))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelResp{Message: "Booking cancelled successfully.", Booking: b})
}

func (h *BookingsHandler) advance(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid json"})
		return
	}
	b, err := h.Service.AdvanceStatus(r.Context(), chi.URLParam(r, "id"), req.Status, actorFrom(r.Context()))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
