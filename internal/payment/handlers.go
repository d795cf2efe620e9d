package payment

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"eventservices/internal/api"
	"eventservices/internal/event"
	"eventservices/internal/notify"
	"eventservices/internal/status"
	"eventservices/internal/timeline"
	"eventservices/internal/validate"
	"eventservices/pkg/db"
)

type Handlers struct {
	DB       *pgxpool.Pool
	Payments *Repository
	Events   *event.Repository
	Reviewer Reviewer
}

type AssignPlanRequest struct {
	Total        decimal.Decimal       `json:"total"`
	Currency     string                `json:"currency"`
	Installments []InstallmentTemplate `json:"installments"`
}

func (r *AssignPlanRequest) Validate() error {
	if r.Currency == "" {
		r.Currency = "CLP"
	}
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	if len(r.Currency) != 3 {
		return validate.ValidationError{Code: "VALIDATION_FAILED", Field: "currency", Message: "currency must be a 3-letter code"}
	}
	// The last installment is final unless the caller marked one explicitly.
	anyFinal := false
	for _, in := range r.Installments {
		anyFinal = anyFinal || in.IsFinal
	}
	if !anyFinal && len(r.Installments) > 0 {
		r.Installments[len(r.Installments)-1].IsFinal = true
	}
	return ValidatePlan(r.Installments)
}

func (h Handlers) AssignPlan(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	var req AssignPlanRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteDomainError(w, err, "invalid request")
		return
	}
	installments, err := CalculateInstallments(req.Total, req.Installments, DefaultCurrencyScale)
	if err != nil {
		api.WriteDomainError(w, err, "invalid payment plan")
		return
	}

	actor := api.ActorID(r.Context())
	now := time.Now()
	var (
		ch      *event.Change
		created []Payment
	)
	err = db.WithTx(r.Context(), h.DB, func(tx pgx.Tx) error {
		ev, err := event.GetForUpdate(r.Context(), tx, eventID)
		if err != nil {
			return err
		}
		n, err := CountByEvent(r.Context(), tx, ev.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return &status.GateError{Code: "PAYMENT_PLAN_EXISTS", Message: "event already has a payment plan"}
		}

		ch, err = h.Reviewer.Workflow.Apply(r.Context(), tx, ev, status.EventPaymentsAssigned, actor, event.ViaPaymentPlan,
			map[string]any{"installments": len(installments), "total": req.Total.StringFixed(int32(DefaultCurrencyScale))})
		if err != nil {
			return err
		}

		for i, in := range installments {
			p := Payment{
				ID:       uuid.NewString(),
				EventID:  ev.ID,
				Sequence: i,
				Label:    in.Label,
				Amount:   in.Amount.StringFixed(int32(DefaultCurrencyScale)),
				Currency: req.Currency,
				IsFinal:  in.IsFinal,
				Status:   status.PaymentPending,
			}
			p.Touch(now)
			if err := Insert(r.Context(), tx, &p); err != nil {
				return err
			}
			created = append(created, p)
		}

		return timeline.Insert(r.Context(), tx, ev.ID, timeline.TypePaymentPlanCreated,
			fmt.Sprintf("Payment plan with %d installment(s) assigned", len(created)), actor, now, nil)
	})
	if err != nil {
		api.WriteDomainError(w, err, "failed to assign payment plan")
		return
	}

	ev := ch.Event
	h.Reviewer.Workflow.Notifier.Notify(r.Context(), ev.Recipient(), notify.TmplPaymentPlanAssigned, "plan:"+ev.ID, map[string]any{
		"EventName":    ev.Name,
		"Installments": len(created),
		"Total":        req.Total.StringFixed(int32(DefaultCurrencyScale)),
		"Currency":     req.Currency,
	})

	api.WriteJSON(w, http.StatusCreated, map[string]any{"event": ev, "items": created})
}

func (h Handlers) ListByEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	if _, err := h.Events.GetByID(r.Context(), eventID); err != nil {
		api.WriteDomainError(w, err, "failed to load event")
		return
	}
	items, err := h.Payments.ListByEvent(r.Context(), eventID)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h Handlers) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, Decision{To: status.PaymentApproved})
}

type RejectRequest struct {
	IssueCategory string `json:"issueCategory"`
	Note          string `json:"note"`
}

func (r RejectRequest) Validate() error {
	return validate.MaxLen("note", r.Note, 1000)
}

func (h Handlers) Reject(w http.ResponseWriter, r *http.Request) {
	var req RejectRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteDomainError(w, err, "invalid request")
		return
	}
	h.review(w, r, Decision{To: status.PaymentRejected, IssueCategory: req.IssueCategory, Note: req.Note})
}

func (h Handlers) review(w http.ResponseWriter, r *http.Request, d Decision) {
	id := chi.URLParam(r, "id")
	actor := api.ActorID(r.Context())

	var out *Outcome
	err := db.WithTx(r.Context(), h.DB, func(tx pgx.Tx) error {
		var err error
		out, err = h.Reviewer.Review(r.Context(), tx, id, d, actor)
		return err
	})
	if err != nil {
		api.WriteDomainError(w, err, "failed to review payment")
		return
	}

	h.Reviewer.Notify(r.Context(), out)
	api.WriteJSON(w, http.StatusOK, map[string]any{"payment": out.Payment})
}
