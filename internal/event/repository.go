package event

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventservices/internal/api"
	"eventservices/internal/notify"
	"eventservices/internal/status"
	"eventservices/pkg/db"
)

var ErrNotFound = api.NotFoundError("event")

type Event struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	ClientName  string        `json:"clientName"`
	ClientEmail string        `json:"clientEmail,omitempty"`
	ClientPhone string        `json:"clientPhone,omitempty"`
	Venue       string        `json:"venue,omitempty"`
	EventDate   *time.Time    `json:"eventDate,omitempty"`
	Status      status.Status `json:"status"`
	Notes       string        `json:"notes,omitempty"`
	db.Timestamps
}

func (e Event) Recipient() notify.Recipient {
	return notify.Recipient{Name: e.ClientName, Email: e.ClientEmail, Phone: e.ClientPhone}
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const selectColumns = `
SELECT id, name, client_name, client_email, client_phone, venue, event_date, status, notes, created_at, updated_at
FROM events
`

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	if err := row.Scan(&e.ID, &e.Name, &e.ClientName, &e.ClientEmail, &e.ClientPhone, &e.Venue, &e.EventDate,
		&e.Status, &e.Notes, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func Insert(ctx context.Context, tx pgx.Tx, e *Event) error {
	const q = `
INSERT INTO events (id, name, client_name, client_email, client_phone, venue, event_date, status, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`
	_, err := tx.Exec(ctx, q, e.ID, e.Name, e.ClientName, e.ClientEmail, e.ClientPhone, e.Venue, e.EventDate,
		e.Status, e.Notes, e.CreatedAt, e.UpdatedAt)
	return err
}

type ListFilter struct {
	Status status.Status
	Limit  int
}

func (r *Repository) List(ctx context.Context, f ListFilter) ([]Event, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	q := selectColumns + `
WHERE ($1 = '' OR status = $1)
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := r.db.Query(ctx, q, string(f.Status), f.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Event, error) {
	return scanEvent(r.db.QueryRow(ctx, selectColumns+`WHERE id = $1`, id))
}

func GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Event, error) {
	return scanEvent(tx.QueryRow(ctx, selectColumns+`WHERE id = $1 FOR UPDATE`, id))
}

func UpdateStatus(ctx context.Context, tx pgx.Tx, e *Event) error {
	const q = `UPDATE events SET status = $2, updated_at = $3 WHERE id = $1`
	_, err := tx.Exec(ctx, q, e.ID, e.Status, e.UpdatedAt)
	return err
}

// Delete removes the event; appointments, payments, bookings and portal tokens cascade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func countUnapprovedPayments(ctx context.Context, tx pgx.Tx, eventID string) (total, unapproved int, err error) {
	const q = `
SELECT COUNT(*), COUNT(*) FILTER (WHERE status <> 'APPROVED')
FROM payments
WHERE event_id = $1
`
	err = tx.QueryRow(ctx, q, eventID).Scan(&total, &unapproved)
	return total, unapproved, err
}

// ActivePortalToken returns the newest unexpired, unrevoked token for the event, if any.
func (r *Repository) ActivePortalToken(ctx context.Context, eventID string) (string, *time.Time, error) {
	const q = `
SELECT token, expires_at
FROM portal_tokens
WHERE event_id = $1 AND revoked_at IS NULL AND expires_at > NOW()
ORDER BY created_at DESC
LIMIT 1
`
	var tok string
	var exp time.Time
	if err := r.db.QueryRow(ctx, q, eventID).Scan(&tok, &exp); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, nil
		}
		return "", nil, err
	}
	return tok, &exp, nil
}

// Get reads the event inside tx without locking it.
func Get(ctx context.Context, tx pgx.Tx, id string) (*Event, error) {
	return scanEvent(tx.QueryRow(ctx, selectColumns+`WHERE id = $1`, id))
}
