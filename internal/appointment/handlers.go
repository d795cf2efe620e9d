package appointment

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventservices/internal/api"
	"eventservices/internal/audit"
	"eventservices/internal/event"
	"eventservices/internal/notify"
	"eventservices/internal/status"
	"eventservices/internal/timeline"
	"eventservices/internal/validate"
	"eventservices/pkg/db"
)

type Handlers struct {
	DB           *pgxpool.Pool
	Appointments *Repository
	Events       *event.Repository
	Notifier     notify.Notifier
}

type CreateRequest struct {
	Date  string `json:"date"`
	Hour  string `json:"hour"`
	Notes string `json:"notes"`
}

func (r CreateRequest) Validate() error {
	if _, err := ParseSchedule(r.Date, r.Hour); err != nil {
		return err
	}
	return validate.MaxLen("notes", r.Notes, 2000)
}

func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	var req CreateRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteDomainError(w, err, "invalid request")
		return
	}
	sched, _ := ParseSchedule(req.Date, req.Hour)

	now := time.Now()
	a := &Appointment{
		ID:      uuid.NewString(),
		EventID: eventID,
		Status:  status.AppointmentPending,
		Notes:   req.Notes,
	}
	if sched != nil {
		d := sched.Date
		a.Date = &d
		a.Hour = sched.Hour
	}
	a.Touch(now)

	actor := api.ActorID(r.Context())
	err := db.WithTx(r.Context(), h.DB, func(tx pgx.Tx) error {
		if _, err := event.Get(r.Context(), tx, eventID); err != nil {
			return err
		}
		if err := Insert(r.Context(), tx, a); err != nil {
			return err
		}
		if err := audit.Insert(r.Context(), tx, string(status.EntityAppointment), a.ID, "CREATED", actor, nil); err != nil {
			return err
		}
		return timeline.Insert(r.Context(), tx, eventID, timeline.TypeAppointmentCreated, "Appointment requested", actor, now, map[string]any{"appointmentId": a.ID})
	})
	if err != nil {
		api.WriteDomainError(w, err, "failed to create appointment")
		return
	}
	api.WriteJSON(w, http.StatusCreated, map[string]any{"appointment": a})
}

func (h Handlers) ListByEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	if _, err := h.Events.GetByID(r.Context(), eventID); err != nil {
		api.WriteDomainError(w, err, "failed to load event")
		return
	}
	items, err := h.Appointments.ListByEvent(r.Context(), eventID)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

type ConfirmRequest struct {
	Date string `json:"date"`
	Hour string `json:"hour"`
}

func (r ConfirmRequest) Validate() error {
	if err := validate.First(validate.Required("date", r.Date), validate.Required("hour", r.Hour)); err != nil {
		return err
	}
	_, err := ParseSchedule(r.Date, r.Hour)
	return err
}

// Confirm sets the date + hour and moves the appointment to CONFIRMED.
// Confirming again reschedules.
func (h Handlers) Confirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteDomainError(w, err, "invalid request")
		return
	}
	sched, _ := ParseSchedule(req.Date, req.Hour)
	h.change(w, r, status.AppointmentConfirmed, sched)
}

type PatchStatusRequest struct {
	Status string `json:"status"`
	Date   string `json:"date,omitempty"`
	Hour   string `json:"hour,omitempty"`
}

func (r PatchStatusRequest) Validate() error {
	if err := validate.Required("status", r.Status); err != nil {
		return err
	}
	_, err := ParseSchedule(r.Date, r.Hour)
	return err
}

func (h Handlers) PatchStatus(w http.ResponseWriter, r *http.Request) {
	var req PatchStatusRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteDomainError(w, err, "invalid request")
		return
	}
	next, err := status.Parse(status.EntityAppointment, req.Status)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid status")
		return
	}
	sched, _ := ParseSchedule(req.Date, req.Hour)
	h.change(w, r, next, sched)
}

func (h Handlers) change(w http.ResponseWriter, r *http.Request, next status.Status, sched *Schedule) {
	id := chi.URLParam(r, "id")
	actor := api.ActorID(r.Context())
	now := time.Now()

	var (
		a    *Appointment
		ev   *event.Event
		from status.Status
	)
	err := db.WithTx(r.Context(), h.DB, func(tx pgx.Tx) error {
		var err error
		a, err = GetForUpdate(r.Context(), tx, id)
		if err != nil {
			return err
		}
		from = a.Status
		if err := transition(a, next, sched, now); err != nil {
			return err
		}
		if err := Update(r.Context(), tx, a); err != nil {
			return err
		}

		meta := map[string]any{"appointmentId": a.ID, "from": from, "to": next, "date": a.Date, "hour": a.Hour}
		if err := audit.Insert(r.Context(), tx, string(status.EntityAppointment), a.ID, "STATUS_CHANGED", actor, meta); err != nil {
			return err
		}
		summary := fmt.Sprintf("Appointment %s", next)
		if err := timeline.Insert(r.Context(), tx, a.EventID, timeline.TypeAppointmentUpdated, summary, actor, now, meta); err != nil {
			return err
		}
		ev, err = event.Get(r.Context(), tx, a.EventID)
		return err
	})
	if err != nil {
		api.WriteDomainError(w, err, "failed to update appointment")
		return
	}

	if next == status.AppointmentConfirmed && a.Date != nil {
		date := a.Date.Format("2006-01-02")
		key := fmt.Sprintf("appointment:%s:confirmed:%s:%s", a.ID, date, a.Hour)
		h.Notifier.Notify(r.Context(), ev.Recipient(), notify.TmplAppointmentConfirmed, key, map[string]any{
			"EventName": ev.Name,
			"Date":      date,
			"Hour":      a.Hour,
		})
	}

	api.WriteJSON(w, http.StatusOK, map[string]any{"appointment": a, "from": from})
}
