package resource

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventservices/internal/api"
	"eventservices/internal/audit"
	"eventservices/internal/event"
	"eventservices/internal/ledger"
	"eventservices/internal/status"
	"eventservices/internal/timeline"
	"eventservices/internal/validate"
	"eventservices/pkg/db"
)

type Handlers struct {
	DB        *pgxpool.Pool
	Resources *Repository
	Events    *event.Repository
	Ledger    *ledger.Ledger
}

type CreateRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

func (r CreateRequest) Validate() error {
	if err := validate.First(validate.Required("name", r.Name), validate.MaxLen("name", r.Name, 200)); err != nil {
		return err
	}
	if _, err := ParseType(r.Type); err != nil {
		return validate.ValidationError{Code: "VALIDATION_FAILED", Field: "type", Message: err.Error()}
	}
	return nil
}

func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteDomainError(w, err, "invalid request")
		return
	}
	t, _ := ParseType(req.Type)

	res := &Resource{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Type:        t,
		Status:      status.ResourceAvailable,
		Description: req.Description,
	}
	res.Touch(time.Now())
	if err := h.Resources.Insert(r.Context(), res); err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to create resource")
		return
	}
	api.WriteJSON(w, http.StatusCreated, map[string]any{"resource": res})
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	var f ListFilter
	if s := r.URL.Query().Get("type"); s != "" {
		t, err := ParseType(s)
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
			return
		}
		f.Type = t
	}
	if s := r.URL.Query().Get("status"); s != "" {
		st, err := status.Parse(status.EntityResource, s)
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid status")
			return
		}
		f.Status = st
	}

	items, err := h.Resources.List(r.Context(), f)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.Resources.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteDomainError(w, err, "failed to load resource")
		return
	}
	active, err := h.Ledger.ActiveBookings(r.Context(), res.ID)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to load bookings")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"resource": res, "activeBookings": active})
}

func (h Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Resources.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		api.WriteDomainError(w, err, "failed to delete resource")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type PatchStatusRequest struct {
	Status string `json:"status"`
}

func (r PatchStatusRequest) Validate() error {
	return validate.Required("status", r.Status)
}

// PatchStatus runs under the same per-resource lock as reservations, so a booking
// cannot slip in between the active-bookings check and the update.
func (h Handlers) PatchStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req PatchStatusRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteDomainError(w, err, "invalid request")
		return
	}
	next, err := status.Parse(status.EntityResource, req.Status)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid status")
		return
	}

	actor := api.ActorID(r.Context())
	var res *Resource
	err = h.Ledger.WithResourceLock(r.Context(), id, func(ctx context.Context) error {
		active, err := h.Ledger.ActiveBookings(ctx, id)
		if err != nil {
			return err
		}
		return db.WithTx(ctx, h.DB, func(tx pgx.Tx) error {
			res, err = GetForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			from := res.Status
			if err := checkStatusChange(id, from, next, active); err != nil {
				return err
			}
			res.Status = next
			res.Touch(time.Now())
			if err := UpdateStatus(ctx, tx, res); err != nil {
				return err
			}
			return audit.Insert(ctx, tx, string(status.EntityResource), id, "STATUS_CHANGED", actor, map[string]any{"from": from, "to": next})
		})
	})
	if err != nil {
		api.WriteDomainError(w, err, "failed to change resource status")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"resource": res})
}

type ReserveRequest struct {
	Date    string `json:"date"`
	EventID string `json:"eventId"`
}

func (r ReserveRequest) Validate() error {
	if err := validate.Required("date", r.Date); err != nil {
		return err
	}
	_, err := validate.Date("date", r.Date)
	return err
}

func (h Handlers) Reserve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ReserveRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteDomainError(w, err, "invalid request")
		return
	}
	date, _ := ledger.ParseDay(req.Date)

	eventID := strings.TrimSpace(req.EventID)
	if eventID != "" {
		if _, err := h.Events.GetByID(r.Context(), eventID); err != nil {
			api.WriteDomainError(w, err, "failed to load event")
			return
		}
	}

	bookingID, err := h.Ledger.ReserveForEvent(r.Context(), id, eventID, date)
	if err != nil {
		api.WriteDomainError(w, err, "failed to reserve resource")
		return
	}

	b := ledger.Booking{ID: bookingID, ResourceID: id, EventID: eventID, Date: ledger.Day(date)}
	h.recordBooking(r.Context(), bookingBooked, b)

	api.WriteJSON(w, http.StatusCreated, map[string]any{"booking": b})
}

type bookingChange struct {
	action    string
	entryType string
	verb      string
}

var (
	bookingBooked   = bookingChange{action: "BOOKED", entryType: timeline.TypeResourceBooked, verb: "booked"}
	bookingReleased = bookingChange{action: "RESOURCE_RELEASED", entryType: timeline.TypeResourceReleased, verb: "released"}
)

func bookingMeta(b ledger.Booking) map[string]any {
	meta := map[string]any{
		"resourceId": b.ResourceID,
		"bookingId":  b.ID,
		"date":       b.Date.Format(ledger.DateLayout),
	}
	if b.EventID != "" {
		meta["eventId"] = b.EventID
	}
	return meta
}

// recordBooking writes the audit row, and the event timeline row when the booking serves an event,
// for a change the ledger already committed. Failures are ignored: the ledger change stands either way.
func (h Handlers) recordBooking(ctx context.Context, c bookingChange, b ledger.Booking) {
	actor := api.ActorID(ctx)
	meta := bookingMeta(b)
	_ = db.WithTx(ctx, h.DB, func(tx pgx.Tx) error {
		if err := audit.Insert(ctx, tx, string(status.EntityResource), b.ResourceID, c.action, actor, meta); err != nil {
			return err
		}
		if b.EventID == "" {
			return nil
		}
		summary := fmt.Sprintf("Resource %s for %s", c.verb, b.Date.Format(ledger.DateLayout))
		return timeline.Insert(ctx, tx, b.EventID, c.entryType, summary, actor, time.Now(), meta)
	})
}

func (h Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Resources.GetByID(r.Context(), id); err != nil {
		api.WriteDomainError(w, err, "failed to load resource")
		return
	}

	var from, to time.Time
	if s := r.URL.Query().Get("from"); s != "" {
		d, err := validate.Date("from", s)
		if err != nil {
			api.WriteDomainError(w, err, "invalid from")
			return
		}
		from = d
	}
	if s := r.URL.Query().Get("to"); s != "" {
		d, err := validate.Date("to", s)
		if err != nil {
			api.WriteDomainError(w, err, "invalid to")
			return
		}
		to = d
	}

	items, err := h.Ledger.Bookings(r.Context(), id, from, to)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to list bookings")
		return
	}
	if items == nil {
		items = []ledger.Booking{}
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Release is idempotent: unknown booking ids also answer 204.
func (h Handlers) Release(w http.ResponseWriter, r *http.Request) {
	b, ok, err := h.Ledger.Release(r.Context(), chi.URLParam(r, "bookingId"))
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to release booking")
		return
	}
	if ok {
		h.recordBooking(r.Context(), bookingReleased, b)
	}
	w.WriteHeader(http.StatusNoContent)
}
