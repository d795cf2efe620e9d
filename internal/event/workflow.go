package event

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"eventservices/internal/audit"
	"eventservices/internal/notify"
	"eventservices/internal/status"
	"eventservices/internal/timeline"
)

// Via names the path a status change comes through; some targets are reserved to one path.
type Via string

const (
	ViaStaff       Via = "staff"
	ViaPortal      Via = "portal"
	ViaPaymentPlan Via = "payment_plan"
)

// TokenIssuer creates a client portal token inside tx.
type TokenIssuer func(ctx context.Context, tx pgx.Tx, eventID string, expiresAt time.Time) (string, error)

type Workflow struct {
	IssuePortalToken TokenIssuer
	PortalTokenTTL   time.Duration
	PortalBaseURL    string
	Notifier         notify.Notifier
	Now              func() time.Time
}

type Change struct {
	Event       Event
	From        status.Status
	To          status.Status
	PortalToken string
	Actor       string
}

func (wf Workflow) now() time.Time {
	if wf.Now != nil {
		return wf.Now()
	}
	return time.Now()
}

// checkGates applies the business rules layered on top of the transition table.
func checkGates(to status.Status, via Via, totalPayments, unapproved int) error {
	switch to {
	case status.EventPaymentsAssigned:
		if via != ViaPaymentPlan {
			return &status.GateError{Code: "PAYMENT_PLAN_REQUIRED", Message: "assign a payment plan to move the event to PAYMENTS_ASSIGNED"}
		}
	case status.EventFinished:
		if totalPayments == 0 {
			return &status.GateError{Code: "PAYMENTS_PENDING", Message: "event has no payments"}
		}
		if unapproved > 0 {
			return &status.GateError{Code: "PAYMENTS_PENDING", Message: fmt.Sprintf("%d payment(s) are not approved", unapproved)}
		}
	}
	return nil
}

// Apply moves ev to next inside tx. ev must have been loaded with GetForUpdate.
// Audit and timeline rows are written in the same transaction.
func (wf Workflow) Apply(ctx context.Context, tx pgx.Tx, ev *Event, next status.Status, actor string, via Via, data map[string]any) (*Change, error) {
	from := ev.Status
	if err := status.Validate(status.EntityEvent, from, next); err != nil {
		return nil, err
	}

	var total, unapproved int
	if next == status.EventFinished {
		var err error
		total, unapproved, err = countUnapprovedPayments(ctx, tx, ev.ID)
		if err != nil {
			return nil, err
		}
	}
	if err := checkGates(next, via, total, unapproved); err != nil {
		return nil, err
	}

	now := wf.now()
	ev.Status = next
	ev.Touch(now)
	if err := UpdateStatus(ctx, tx, ev); err != nil {
		return nil, err
	}

	ch := &Change{Event: *ev, From: from, To: next, Actor: actor}
	if next == status.EventClientReview && wf.IssuePortalToken != nil {
		ttl := wf.PortalTokenTTL
		if ttl <= 0 {
			ttl = 30 * 24 * time.Hour
		}
		tok, err := wf.IssuePortalToken(ctx, tx, ev.ID, now.Add(ttl))
		if err != nil {
			return nil, fmt.Errorf("issue portal token: %w", err)
		}
		ch.PortalToken = tok
	}

	meta := map[string]any{"from": from, "to": next, "via": via}
	for k, v := range data {
		meta[k] = v
	}
	if err := audit.Insert(ctx, tx, string(status.EntityEvent), ev.ID, "STATUS_CHANGED", actor, meta); err != nil {
		return nil, err
	}
	summary := fmt.Sprintf("Status changed from %s to %s", from, next)
	if err := timeline.Insert(ctx, tx, ev.ID, timeline.TypeStatusChanged, summary, actor, now, meta); err != nil {
		return nil, err
	}
	return ch, nil
}

// Notify tells the client about a committed change. Call after the transaction commits.
func (wf Workflow) Notify(ctx context.Context, ch *Change) {
	if ch == nil {
		return
	}
	ev := ch.Event
	key := fmt.Sprintf("event:%s:%s:%s", ev.ID, ch.To, ev.UpdatedAt.UTC().Format(time.RFC3339Nano))

	if ch.To == status.EventClientReview && ch.PortalToken != "" {
		wf.Notifier.Notify(ctx, ev.Recipient(), notify.TmplClientReview, key, map[string]any{
			"EventName": ev.Name,
			"PortalURL": wf.PortalURL(ch.PortalToken),
		})
		return
	}
	wf.Notifier.Notify(ctx, ev.Recipient(), notify.TmplEventStatusChanged, key, map[string]any{
		"EventName": ev.Name,
		"From":      string(ch.From),
		"Status":    string(ch.To),
	})
}

func (wf Workflow) PortalURL(token string) string {
	if token == "" {
		return ""
	}
	return strings.TrimRight(wf.PortalBaseURL, "/") + "/" + token
}
