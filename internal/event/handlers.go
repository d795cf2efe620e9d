package event

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventservices/internal/api"
	"eventservices/internal/audit"
	"eventservices/internal/status"
	"eventservices/internal/timeline"
	"eventservices/internal/validate"
	"eventservices/pkg/db"
)

type Handlers struct {
	DB        *pgxpool.Pool
	Events    *Repository
	Timelines *timeline.Repository
	Workflow  Workflow
}

type CreateRequest struct {
	Name        string `json:"name"`
	ClientName  string `json:"clientName"`
	ClientEmail string `json:"clientEmail"`
	ClientPhone string `json:"clientPhone"`
	Venue       string `json:"venue"`
	EventDate   string `json:"eventDate"`
	Notes       string `json:"notes"`
}

func (r CreateRequest) Validate() error {
	if err := validate.First(
		validate.Required("name", r.Name),
		validate.MaxLen("name", r.Name, 200),
		validate.Required("clientName", r.ClientName),
	); err != nil {
		return err
	}
	if strings.TrimSpace(r.ClientEmail) == "" && strings.TrimSpace(r.ClientPhone) == "" {
		return validate.ValidationError{Code: "VALIDATION_FAILED", Field: "clientEmail", Message: "clientEmail or clientPhone is required"}
	}
	if r.ClientEmail != "" {
		if err := validate.Email("clientEmail", r.ClientEmail); err != nil {
			return err
		}
	}
	if r.ClientPhone != "" {
		if err := validate.Phone("clientPhone", r.ClientPhone); err != nil {
			return err
		}
	}
	if r.EventDate != "" {
		if _, err := validate.Date("eventDate", r.EventDate); err != nil {
			return err
		}
	}
	return nil
}

func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteDomainError(w, err, "invalid request")
		return
	}

	now := time.Now()
	ev := &Event{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		ClientName:  strings.TrimSpace(req.ClientName),
		ClientEmail: strings.TrimSpace(req.ClientEmail),
		ClientPhone: strings.TrimSpace(req.ClientPhone),
		Venue:       strings.TrimSpace(req.Venue),
		Status:      status.EventPendingConfig,
		Notes:       req.Notes,
	}
	if req.EventDate != "" {
		d, _ := validate.Date("eventDate", req.EventDate)
		ev.EventDate = &d
	}
	ev.Touch(now)

	actor := api.ActorID(r.Context())
	err := db.WithTx(r.Context(), h.DB, func(tx pgx.Tx) error {
		if err := Insert(r.Context(), tx, ev); err != nil {
			return err
		}
		if err := audit.Insert(r.Context(), tx, string(status.EntityEvent), ev.ID, "CREATED", actor, map[string]any{"name": ev.Name}); err != nil {
			return err
		}
		return timeline.Insert(r.Context(), tx, ev.ID, timeline.TypeEventCreated, "Event created", actor, now, nil)
	})
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to create event")
		return
	}

	api.WriteJSON(w, http.StatusCreated, map[string]any{"event": ev})
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	var f ListFilter
	if s := r.URL.Query().Get("status"); s != "" {
		st, err := status.Parse(status.EntityEvent, s)
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid status")
			return
		}
		f.Status = st
	}
	f.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))

	items, err := h.Events.List(r.Context(), f)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ev, err := h.Events.GetByID(r.Context(), id)
	if err != nil {
		api.WriteDomainError(w, err, "failed to load event")
		return
	}

	var portal any
	if tok, exp, err := h.Events.ActivePortalToken(r.Context(), ev.ID); err == nil && tok != "" {
		portal = map[string]any{"token": tok, "url": h.Workflow.PortalURL(tok), "expiresAt": exp}
	}

	api.WriteJSON(w, http.StatusOK, map[string]any{
		"event":  ev,
		"portal": portal,
	})
}

func (h Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Events.Delete(r.Context(), id); err != nil {
		api.WriteDomainError(w, err, "failed to delete event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type PatchStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func (r PatchStatusRequest) Validate() error {
	return validate.Required("status", r.Status)
}

func (h Handlers) PatchStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req PatchStatusRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteDomainError(w, err, "invalid request")
		return
	}
	next, err := status.Parse(status.EntityEvent, req.Status)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid status")
		return
	}

	actor := api.ActorID(r.Context())
	var ch *Change
	err = db.WithTx(r.Context(), h.DB, func(tx pgx.Tx) error {
		ev, err := GetForUpdate(r.Context(), tx, id)
		if err != nil {
			return err
		}
		var data map[string]any
		if req.Reason != "" {
			data = map[string]any{"reason": req.Reason}
		}
		ch, err = h.Workflow.Apply(r.Context(), tx, ev, next, actor, ViaStaff, data)
		return err
	})
	if err != nil {
		api.WriteDomainError(w, err, "failed to change status")
		return
	}

	h.Workflow.Notify(r.Context(), ch)

	resp := map[string]any{"event": ch.Event, "from": ch.From}
	if ch.PortalToken != "" {
		resp["portal"] = map[string]any{"token": ch.PortalToken, "url": h.Workflow.PortalURL(ch.PortalToken)}
	}
	api.WriteJSON(w, http.StatusOK, resp)
}

func (h Handlers) Timeline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Events.GetByID(r.Context(), id); err != nil {
		api.WriteDomainError(w, err, "failed to load event")
		return
	}

	items, err := h.Timelines.ListByEvent(r.Context(), id)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}
