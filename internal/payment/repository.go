package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventservices/internal/api"
	"eventservices/internal/status"
	"eventservices/pkg/db"
)

var ErrNotFound = api.NotFoundError("payment")

type IssueCategory string

const (
	IssueAmountMismatch   IssueCategory = "AMOUNT_MISMATCH"
	IssueIllegibleReceipt IssueCategory = "ILLEGIBLE_RECEIPT"
	IssueDuplicatePayment IssueCategory = "DUPLICATE_PAYMENT"
	IssueWrongAccount     IssueCategory = "WRONG_ACCOUNT"
	IssueExpired          IssueCategory = "EXPIRED"
	IssueOther            IssueCategory = "OTHER"
)

func ParseIssueCategory(s string) (IssueCategory, error) {
	c := IssueCategory(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case IssueAmountMismatch, IssueIllegibleReceipt, IssueDuplicatePayment, IssueWrongAccount, IssueExpired, IssueOther:
		return c, nil
	case "":
		return "", fmt.Errorf("issue category is required")
	default:
		return "", fmt.Errorf("unknown issue category: %s", s)
	}
}

type Payment struct {
	ID            string        `json:"id"`
	EventID       string        `json:"eventId"`
	Sequence      int           `json:"sequence"`
	Label         string        `json:"label"`
	Amount        string        `json:"amount"`
	Currency      string        `json:"currency"`
	IsFinal       bool          `json:"isFinal"`
	Status        status.Status `json:"status"`
	IssueCategory IssueCategory `json:"issueCategory,omitempty"`
	IssueNote     string        `json:"issueNote,omitempty"`
	ReceiptURL    string        `json:"receiptUrl,omitempty"`
	ReviewedBy    string        `json:"reviewedBy,omitempty"`
	ReviewedAt    *time.Time    `json:"reviewedAt,omitempty"`
	db.Timestamps
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const selectColumns = `
SELECT id, event_id, sequence, label, amount::text, currency, is_final, status,
       COALESCE(issue_category, ''), COALESCE(issue_note, ''), COALESCE(receipt_url, ''), COALESCE(reviewed_by, ''),
       reviewed_at, created_at, updated_at
FROM payments
`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	if err := row.Scan(&p.ID, &p.EventID, &p.Sequence, &p.Label, &p.Amount, &p.Currency, &p.IsFinal, &p.Status,
		&p.IssueCategory, &p.IssueNote, &p.ReceiptURL, &p.ReviewedBy, &p.ReviewedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *Repository) ListByEvent(ctx context.Context, eventID string) ([]Payment, error) {
	rows, err := r.db.Query(ctx, selectColumns+`WHERE event_id = $1 ORDER BY sequence ASC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Payment, error) {
	return scanPayment(r.db.QueryRow(ctx, selectColumns+`WHERE id = $1`, id))
}

func GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Payment, error) {
	return scanPayment(tx.QueryRow(ctx, selectColumns+`WHERE id = $1 FOR UPDATE`, id))
}

func CountByEvent(ctx context.Context, tx pgx.Tx, eventID string) (int, error) {
	var n int
	err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE event_id = $1`, eventID).Scan(&n)
	return n, err
}

func Insert(ctx context.Context, tx pgx.Tx, p *Payment) error {
	const q = `
INSERT INTO payments (id, event_id, sequence, label, amount, currency, is_final, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`
	_, err := tx.Exec(ctx, q, p.ID, p.EventID, p.Sequence, p.Label, p.Amount, p.Currency, p.IsFinal, p.Status, p.CreatedAt, p.UpdatedAt)
	return err
}

// Update persists status, review and receipt fields.
func Update(ctx context.Context, tx pgx.Tx, p *Payment) error {
	const q = `
UPDATE payments
SET status = $2,
    issue_category = NULLIF($3, ''),
    issue_note = NULLIF($4, ''),
    receipt_url = NULLIF($5, ''),
    reviewed_by = NULLIF($6, ''),
    reviewed_at = $7,
    updated_at = $8
WHERE id = $1
`
	_, err := tx.Exec(ctx, q, p.ID, p.Status, string(p.IssueCategory), p.IssueNote, p.ReceiptURL, p.ReviewedBy, p.ReviewedAt, p.UpdatedAt)
	return err
}
