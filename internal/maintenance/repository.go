package maintenance

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventservices/internal/api"
	"eventservices/internal/status"
	"eventservices/pkg/db"
)

var ErrNotFound = api.NotFoundError("maintenance")

type Type string

const (
	TypePreventive Type = "PREVENTIVE"
	TypeCorrective Type = "CORRECTIVE"
)

func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToUpper(strings.TrimSpace(s))); t {
	case TypePreventive, TypeCorrective:
		return t, nil
	case "PREVENTIVO":
		return TypePreventive, nil
	case "CORRECTIVO":
		return TypeCorrective, nil
	}
	return "", errors.New("maintenance type must be PREVENTIVE or CORRECTIVE")
}

type Maintenance struct {
	ID          string        `json:"id"`
	ResourceID  string        `json:"resourceId"`
	Type        Type          `json:"type"`
	Description string        `json:"description"`
	Status      status.Status `json:"status"`
	FinalizedAt *time.Time    `json:"finalizedAt,omitempty"`
	db.Timestamps
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const selectColumns = `
SELECT id, resource_id, type, description, status, finalized_at, created_at, updated_at
FROM maintenances
`

func scan(row pgx.Row) (*Maintenance, error) {
	var m Maintenance
	err := row.Scan(&m.ID, &m.ResourceID, &m.Type, &m.Description, &m.Status, &m.FinalizedAt, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func Insert(ctx context.Context, tx pgx.Tx, m *Maintenance) error {
	const q = `
INSERT INTO maintenances (id, resource_id, type, description, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	_, err := tx.Exec(ctx, q, m.ID, m.ResourceID, m.Type, m.Description, m.Status, m.CreatedAt, m.UpdatedAt)
	return err
}

func (r *Repository) ListByResource(ctx context.Context, resourceID string) ([]Maintenance, error) {
	rows, err := r.db.Query(ctx, selectColumns+`WHERE resource_id = $1 ORDER BY created_at DESC`, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Maintenance{}
	for rows.Next() {
		m, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Maintenance, error) {
	return scan(tx.QueryRow(ctx, selectColumns+`WHERE id = $1 FOR UPDATE`, id))
}

func Update(ctx context.Context, tx pgx.Tx, m *Maintenance) error {
	_, err := tx.Exec(ctx, `UPDATE maintenances SET status = $2, finalized_at = $3, updated_at = $4 WHERE id = $1`,
		m.ID, m.Status, m.FinalizedAt, m.UpdatedAt)
	return err
}
