package resource

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventservices/internal/api"
	"eventservices/internal/status"
	"eventservices/pkg/db"
)

var ErrNotFound = api.NotFoundError("resource")

type Type string

const (
	TypeEquipment Type = "EQUIPMENT"
	TypeWorker    Type = "WORKER"
)

func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case TypeEquipment, TypeWorker:
		return t, nil
	}
	return "", errors.New("resource type must be EQUIPMENT or WORKER")
}

type Resource struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Type        Type          `json:"type"`
	Status      status.Status `json:"status"`
	Description string        `json:"description,omitempty"`
	db.Timestamps
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const selectColumns = `
SELECT id, name, type, status, description, created_at, updated_at
FROM resources
`

func scanResource(row pgx.Row) (*Resource, error) {
	var r Resource
	if err := row.Scan(&r.ID, &r.Name, &r.Type, &r.Status, &r.Description, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (r *Repository) Insert(ctx context.Context, res *Resource) error {
	const q = `
INSERT INTO resources (id, name, type, status, description, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	_, err := r.db.Exec(ctx, q, res.ID, res.Name, res.Type, res.Status, res.Description, res.CreatedAt, res.UpdatedAt)
	return err
}

type ListFilter struct {
	Type   Type
	Status status.Status
}

func (r *Repository) List(ctx context.Context, f ListFilter) ([]Resource, error) {
	q := selectColumns + `
WHERE ($1 = '' OR type = $1) AND ($2 = '' OR status = $2)
ORDER BY name ASC
`
	rows, err := r.db.Query(ctx, q, string(f.Type), string(f.Status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Resource{}
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Resource, error) {
	return scanResource(r.db.QueryRow(ctx, selectColumns+`WHERE id = $1`, id))
}

func GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Resource, error) {
	return scanResource(tx.QueryRow(ctx, selectColumns+`WHERE id = $1 FOR UPDATE`, id))
}

func UpdateStatus(ctx context.Context, tx pgx.Tx, res *Resource) error {
	_, err := tx.Exec(ctx, `UPDATE resources SET status = $2, updated_at = $3 WHERE id = $1`, res.ID, res.Status, res.UpdatedAt)
	return err
}

// Delete removes the resource; its bookings and maintenance records cascade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
