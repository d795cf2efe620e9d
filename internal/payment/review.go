package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"eventservices/internal/audit"
	"eventservices/internal/event"
	"eventservices/internal/notify"
	"eventservices/internal/status"
	"eventservices/internal/timeline"
	"eventservices/internal/validate"
)

type Decision struct {
	To            status.Status
	IssueCategory string
	Note          string
}

func (d Decision) Validate() error {
	switch d.To {
	case status.PaymentApproved:
		return nil
	case status.PaymentRejected:
		if _, err := ParseIssueCategory(d.IssueCategory); err != nil {
			return validate.ValidationError{Code: "ISSUE_CATEGORY_REQUIRED", Field: "issueCategory", Message: err.Error()}
		}
		return nil
	default:
		return validate.ValidationError{Code: "VALIDATION_FAILED", Field: "status", Message: "decision must be APPROVED or REJECTED"}
	}
}

// Outcome is a committed payment change plus the event it belongs to, used for notifications.
type Outcome struct {
	Payment Payment
	Event   event.Event
	From    status.Status
}

// Reviewer applies staff or provider decisions and resubmitted receipts.
type Reviewer struct {
	Events   *event.Repository
	Workflow event.Workflow
	Now      func() time.Time
}

func (rv Reviewer) now() time.Time {
	if rv.Now != nil {
		return rv.Now()
	}
	return time.Now()
}

// Review moves a payment to APPROVED or REJECTED inside tx.
func (rv Reviewer) Review(ctx context.Context, tx pgx.Tx, paymentID string, d Decision, actor string) (*Outcome, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	p, err := GetForUpdate(ctx, tx, paymentID)
	if err != nil {
		return nil, err
	}
	from := p.Status
	if err := status.Validate(status.EntityPayment, from, d.To); err != nil {
		return nil, err
	}

	now := rv.now()
	p.Status = d.To
	p.ReviewedBy = actor
	p.ReviewedAt = &now
	p.IssueCategory = ""
	p.IssueNote = ""
	if d.To == status.PaymentRejected {
		p.IssueCategory, _ = ParseIssueCategory(d.IssueCategory)
		p.IssueNote = strings.TrimSpace(d.Note)
	}
	p.Touch(now)
	if err := Update(ctx, tx, p); err != nil {
		return nil, err
	}

	meta := map[string]any{"paymentId": p.ID, "from": from, "to": d.To, "amount": p.Amount}
	entry, summary := timeline.TypePaymentApproved, fmt.Sprintf("Payment %q approved", p.Label)
	if d.To == status.PaymentRejected {
		meta["issueCategory"] = p.IssueCategory
		entry, summary = timeline.TypePaymentRejected, fmt.Sprintf("Payment %q rejected (%s)", p.Label, p.IssueCategory)
	}
	if err := audit.Insert(ctx, tx, string(status.EntityPayment), p.ID, "PAYMENT_"+string(d.To), actor, meta); err != nil {
		return nil, err
	}
	if err := timeline.Insert(ctx, tx, p.EventID, entry, summary, actor, now, meta); err != nil {
		return nil, err
	}

	ev, err := event.Get(ctx, tx, p.EventID)
	if err != nil {
		return nil, err
	}
	return &Outcome{Payment: *p, Event: *ev, From: from}, nil
}

// SubmitReceipt records a new receipt. A REJECTED payment goes back to PENDING;
// a PENDING one just gets its receipt replaced.
func (rv Reviewer) SubmitReceipt(ctx context.Context, tx pgx.Tx, p *Payment, receiptURL, actor string) error {
	from := p.Status
	if from != status.PaymentPending {
		if err := status.Validate(status.EntityPayment, from, status.PaymentPending); err != nil {
			return err
		}
	}

	now := rv.now()
	p.Status = status.PaymentPending
	p.ReceiptURL = strings.TrimSpace(receiptURL)
	p.IssueCategory = ""
	p.IssueNote = ""
	p.ReviewedBy = ""
	p.ReviewedAt = nil
	p.Touch(now)
	if err := Update(ctx, tx, p); err != nil {
		return err
	}

	meta := map[string]any{"paymentId": p.ID, "from": from, "receiptUrl": p.ReceiptURL}
	if err := audit.Insert(ctx, tx, string(status.EntityPayment), p.ID, "RECEIPT_SUBMITTED", actor, meta); err != nil {
		return err
	}
	return timeline.Insert(ctx, tx, p.EventID, timeline.TypeReceiptSubmitted, fmt.Sprintf("Receipt submitted for %q", p.Label), actor, now, meta)
}

// Notify tells the client about a committed review.
func (rv Reviewer) Notify(ctx context.Context, out *Outcome) {
	if out == nil {
		return
	}
	p, ev := out.Payment, out.Event
	key := fmt.Sprintf("payment:%s:%s:%s", p.ID, p.Status, p.UpdatedAt.UTC().Format(time.RFC3339Nano))
	data := map[string]any{
		"EventName": ev.Name,
		"Label":     p.Label,
		"Amount":    p.Amount,
		"Currency":  p.Currency,
	}

	switch p.Status {
	case status.PaymentApproved:
		rv.Workflow.Notifier.Notify(ctx, ev.Recipient(), notify.TmplPaymentApproved, key, data)
	case status.PaymentRejected:
		data["IssueCategory"] = string(p.IssueCategory)
		data["Note"] = p.IssueNote
		data["PortalURL"] = ""
		if rv.Events != nil {
			if tok, _, err := rv.Events.ActivePortalToken(ctx, ev.ID); err == nil {
				data["PortalURL"] = rv.Workflow.PortalURL(tok)
			}
		}
		rv.Workflow.Notifier.Notify(ctx, ev.Recipient(), notify.TmplPaymentRejected, key, data)
	}
}
