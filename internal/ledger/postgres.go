package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventservices/pkg/db"
)

// PostgresStore backs the ledger with equipment_availability.
// UNIQUE(resource_id, date) holds the invariant even across processes without a shared lock.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, b Booking) error {
	const q = `
INSERT INTO equipment_availability (id, resource_id, event_id, date, created_at)
VALUES ($1, $2, NULLIF($3, ''), $4, $5)
`
	_, err := s.db.Exec(ctx, q, b.ID, b.ResourceID, b.EventID, b.Date, b.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return &ConflictError{ResourceID: b.ResourceID, Date: b.Date}
		}
		return err
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) (Booking, bool, error) {
	const q = `
DELETE FROM equipment_availability
WHERE id = $1
RETURNING id, resource_id, COALESCE(event_id, ''), date, created_at
`
	var b Booking
	err := s.db.QueryRow(ctx, q, id).Scan(&b.ID, &b.ResourceID, &b.EventID, &b.Date, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Booking{}, false, nil
	}
	if err != nil {
		return Booking{}, false, err
	}
	b.Date = Day(b.Date)
	return b, true, nil
}

func (s *PostgresStore) Exists(ctx context.Context, resourceID string, date time.Time) (bool, error) {
	var ok bool
	err := s.db.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM equipment_availability WHERE resource_id = $1 AND date = $2)
`, resourceID, date).Scan(&ok)
	return ok, err
}

func (s *PostgresStore) List(ctx context.Context, resourceID string, from, to time.Time) ([]Booking, error) {
	const q = `
SELECT id, resource_id, COALESCE(event_id, ''), date, created_at
FROM equipment_availability
WHERE resource_id = $1
  AND ($2::date IS NULL OR date >= $2::date)
  AND ($3::date IS NULL OR date <= $3::date)
ORDER BY date ASC
`
	rows, err := s.db.Query(ctx, q, resourceID, nullableDay(from), nullableDay(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.ResourceID, &b.EventID, &b.Date, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.Date = Day(b.Date)
		out = append(out, b)
	}
	return out, rows.Err()
}

func nullableDay(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
