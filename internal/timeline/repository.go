package timeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry types written by the event workflow.
const (
	TypeEventCreated       = "event.created"
	TypeStatusChanged      = "event.status_changed"
	TypePaymentPlanCreated = "payment.plan_created"
	TypePaymentApproved    = "payment.approved"
	TypePaymentRejected    = "payment.rejected"
	TypeReceiptSubmitted   = "payment.receipt_submitted"
	TypeAppointmentCreated = "appointment.created"
	TypeAppointmentUpdated = "appointment.updated"
	TypeResourceBooked     = "resource.booked"
	TypeResourceReleased   = "resource.released"
	TypeClientApproved     = "client.approved"
	TypeClientFollowUp     = "client.follow_up_requested"
	TypeClientRejected     = "client.rejected"
)

type Entry struct {
	ID         string          `json:"id"`
	EventID    string          `json:"eventId"`
	Type       string          `json:"type"`
	Summary    string          `json:"summary"`
	Actor      string          `json:"actor"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data,omitempty"`
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func Insert(ctx context.Context, tx pgx.Tx, eventID, entryType, summary, actor string, occurredAt time.Time, data any) error {
	var s *string
	if data != nil {
		b, _ := json.Marshal(data)
		str := string(b)
		s = &str
	}
	const q = `
INSERT INTO event_timeline (id, event_id, entry_type, summary, actor, occurred_at, data)
VALUES ($1, $2, $3, $4, $5, $6, CAST($7 AS jsonb))
`
	_, err := tx.Exec(ctx, q, uuid.NewString(), eventID, entryType, summary, actor, occurredAt, s)
	return err
}

func (r *Repository) ListByEvent(ctx context.Context, eventID string) ([]Entry, error) {
	const q = `
SELECT id, event_id, entry_type, summary, actor, occurred_at, COALESCE(data, '{}'::jsonb)
FROM event_timeline
WHERE event_id = $1
ORDER BY occurred_at ASC, id ASC
`
	rows, err := r.db.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.EventID, &e.Type, &e.Summary, &e.Actor, &e.OccurredAt, &e.Data); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
