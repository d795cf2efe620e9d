package portal

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventservices/internal/api"
	"eventservices/internal/event"
	"eventservices/internal/payment"
	"eventservices/internal/status"
	"eventservices/internal/timeline"
	"eventservices/internal/validate"
	"eventservices/pkg/db"
)

// ClientActor is recorded as the actor of every portal action.
const ClientActor = "client"

type Handlers struct {
	DB           *pgxpool.Pool
	Tokens       *Repository
	Events       *event.Repository
	Payments     *payment.Repository
	Timelines    *timeline.Repository
	Workflow     event.Workflow
	Reviewer     payment.Reviewer
	SupportEmail string
}

// clientView is the subset of an event shown to the client.
type clientView struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	ClientName string        `json:"clientName"`
	Venue      string        `json:"venue,omitempty"`
	EventDate  *time.Time    `json:"eventDate,omitempty"`
	Status     status.Status `json:"status"`
}

func (h Handlers) View(w http.ResponseWriter, r *http.Request) {
	tr, err := h.Tokens.GetActiveByToken(r.Context(), chi.URLParam(r, "token"), time.Now())
	if err != nil {
		api.WriteDomainError(w, err, "failed to load portal link")
		return
	}
	ev, err := h.Events.GetByID(r.Context(), tr.EventID)
	if err != nil {
		api.WriteDomainError(w, err, "failed to load event")
		return
	}
	payments, err := h.Payments.ListByEvent(r.Context(), ev.ID)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]any{
		"event": clientView{
			ID:         ev.ID,
			Name:       ev.Name,
			ClientName: ev.ClientName,
			Venue:      ev.Venue,
			EventDate:  ev.EventDate,
			Status:     ev.Status,
		},
		"payments":     payments,
		"canReview":    ev.Status == status.EventClientReview,
		"expiresAt":    tr.ExpiresAt,
		"supportEmail": h.SupportEmail,
	})
}

func (h Handlers) Timeline(w http.ResponseWriter, r *http.Request) {
	tr, err := h.Tokens.GetActiveByToken(r.Context(), chi.URLParam(r, "token"), time.Now())
	if err != nil {
		api.WriteDomainError(w, err, "failed to load portal link")
		return
	}
	items, err := h.Timelines.ListByEvent(r.Context(), tr.EventID)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

type ClientActionRequest struct {
	Note string `json:"note"`
}

func (r ClientActionRequest) Validate() error {
	return validate.MaxLen("note", r.Note, 2000)
}

func (h Handlers) Approve(w http.ResponseWriter, r *http.Request) {
	h.clientAction(w, r, status.EventApproved)
}

func (h Handlers) RequestFollowUp(w http.ResponseWriter, r *http.Request) {
	h.clientAction(w, r, status.EventFollowUp)
}

func (h Handlers) Reject(w http.ResponseWriter, r *http.Request) {
	h.clientAction(w, r, status.EventRejected)
}

// clientEntry maps a client decision to its timeline entry.
func clientEntry(next status.Status) (entryType, summary string) {
	switch next {
	case status.EventApproved:
		return timeline.TypeClientApproved, "Client approved the event"
	case status.EventFollowUp:
		return timeline.TypeClientFollowUp, "Client requested follow-up"
	default:
		return timeline.TypeClientRejected, "Client rejected the event"
	}
}

// checkReviewable allows client decisions only while the event waits for them.
func checkReviewable(ev *event.Event, next status.Status) error {
	if ev.Status != status.EventClientReview {
		return &status.InvalidTransitionError{Entity: status.EntityEvent, From: ev.Status, To: next}
	}
	return nil
}

func (h Handlers) clientAction(w http.ResponseWriter, r *http.Request, next status.Status) {
	token := chi.URLParam(r, "token")

	var req ClientActionRequest
	if r.ContentLength != 0 {
		if err := api.DecodeJSON(r, &req); err != nil {
			api.WriteDomainError(w, err, "invalid request")
			return
		}
	}
	note := strings.TrimSpace(req.Note)

	var ch *event.Change
	err := db.WithTx(r.Context(), h.DB, func(tx pgx.Tx) error {
		now := time.Now()
		tr, err := GetActiveByTokenForUpdate(r.Context(), tx, token, now)
		if err != nil {
			return err
		}
		ev, err := event.GetForUpdate(r.Context(), tx, tr.EventID)
		if err != nil {
			return err
		}
		if err := checkReviewable(ev, next); err != nil {
			return err
		}

		ch, err = h.Workflow.Apply(r.Context(), tx, ev, next, ClientActor, event.ViaPortal, map[string]any{"note": note})
		if err != nil {
			return err
		}
		entryType, summary := clientEntry(next)
		return timeline.Insert(r.Context(), tx, ev.ID, entryType, summary, ClientActor, now, map[string]any{"note": note})
	})
	if err != nil {
		api.WriteDomainError(w, err, "failed to record decision")
		return
	}

	h.Workflow.Notify(r.Context(), ch)
	api.WriteJSON(w, http.StatusOK, map[string]any{"status": ch.To})
}

type ReceiptRequest struct {
	ReceiptURL string `json:"receiptUrl"`
}

func (r ReceiptRequest) Validate() error {
	return validate.First(
		validate.Required("receiptUrl", r.ReceiptURL),
		validate.MaxLen("receiptUrl", r.ReceiptURL, 2048),
	)
}

// SubmitReceipt lets the client upload a new receipt link for one of the event's payments.
func (h Handlers) SubmitReceipt(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	paymentID := chi.URLParam(r, "paymentId")

	var req ReceiptRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteDomainError(w, err, "invalid request")
		return
	}

	var p *payment.Payment
	err := db.WithTx(r.Context(), h.DB, func(tx pgx.Tx) error {
		tr, err := GetActiveByTokenForUpdate(r.Context(), tx, token, time.Now())
		if err != nil {
			return err
		}
		p, err = payment.GetForUpdate(r.Context(), tx, paymentID)
		if err != nil {
			return err
		}
		if p.EventID != tr.EventID {
			return payment.ErrNotFound
		}
		return h.Reviewer.SubmitReceipt(r.Context(), tx, p, req.ReceiptURL, ClientActor)
	})
	if err != nil {
		api.WriteDomainError(w, err, "failed to submit receipt")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"payment": p})
}
