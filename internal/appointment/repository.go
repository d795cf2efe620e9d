package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventservices/internal/api"
	"eventservices/internal/status"
	"eventservices/pkg/db"
)

var ErrNotFound = api.NotFoundError("appointment")

type Appointment struct {
	ID      string        `json:"id"`
	EventID string        `json:"eventId"`
	Date    *time.Time    `json:"date,omitempty"`
	Hour    string        `json:"hour,omitempty"`
	Status  status.Status `json:"status"`
	Notes   string        `json:"notes,omitempty"`
	db.Timestamps
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const selectColumns = `
SELECT id, event_id, date, COALESCE(hour, ''), status, notes, created_at, updated_at
FROM appointments
`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	if err := row.Scan(&a.ID, &a.EventID, &a.Date, &a.Hour, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *Repository) ListByEvent(ctx context.Context, eventID string) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, selectColumns+`WHERE event_id = $1 ORDER BY date ASC NULLS LAST, created_at ASC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Appointment, error) {
	return scanAppointment(tx.QueryRow(ctx, selectColumns+`WHERE id = $1 FOR UPDATE`, id))
}

func Insert(ctx context.Context, tx pgx.Tx, a *Appointment) error {
	const q = `
INSERT INTO appointments (id, event_id, date, hour, status, notes, created_at, updated_at)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8)
`
	_, err := tx.Exec(ctx, q, a.ID, a.EventID, a.Date, a.Hour, a.Status, a.Notes, a.CreatedAt, a.UpdatedAt)
	return err
}

func Update(ctx context.Context, tx pgx.Tx, a *Appointment) error {
	const q = `
UPDATE appointments
SET date = $2, hour = NULLIF($3, ''), status = $4, updated_at = $5
WHERE id = $1
`
	_, err := tx.Exec(ctx, q, a.ID, a.Date, a.Hour, a.Status, a.UpdatedAt)
	return err
}
