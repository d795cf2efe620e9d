package portal

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventservices/internal/api"
)

var ErrLinkNotFound = api.NotFoundError("portal link")

type TokenRecord struct {
	ID        string     `json:"id"`
	EventID   string     `json:"eventId"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// usable reports whether the token can still be used at now.
func (tr TokenRecord) usable(now time.Time) bool {
	return tr.RevokedAt == nil && tr.ExpiresAt.After(now)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const selectToken = `
SELECT id, event_id, token, expires_at, revoked_at, created_at
FROM portal_tokens
`

func scanToken(row pgx.Row, now time.Time) (*TokenRecord, error) {
	var tr TokenRecord
	if err := row.Scan(&tr.ID, &tr.EventID, &tr.Token, &tr.ExpiresAt, &tr.RevokedAt, &tr.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	if !tr.usable(now) {
		return nil, ErrLinkNotFound
	}
	return &tr, nil
}

// GetActiveByToken is the read-only lookup used by the portal views.
func (r *Repository) GetActiveByToken(ctx context.Context, token string, now time.Time) (*TokenRecord, error) {
	return scanToken(r.db.QueryRow(ctx, selectToken+`WHERE token = $1`, token), now)
}

// GetActiveByTokenForUpdate locks the token row so two client actions on the same link serialize.
func GetActiveByTokenForUpdate(ctx context.Context, tx pgx.Tx, token string, now time.Time) (*TokenRecord, error) {
	return scanToken(tx.QueryRow(ctx, selectToken+`WHERE token = $1 FOR UPDATE`, token), now)
}

// IssueToken revokes the event's previous links and creates a new one.
// Its signature matches event.TokenIssuer.
func IssueToken(ctx context.Context, tx pgx.Tx, eventID string, expiresAt time.Time) (string, error) {
	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `UPDATE portal_tokens SET revoked_at = $2 WHERE event_id = $1 AND revoked_at IS NULL`, eventID, now); err != nil {
		return "", err
	}

	token := randomHex(32)
	const q = `
INSERT INTO portal_tokens (id, event_id, token, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5)
`
	if _, err := tx.Exec(ctx, q, uuid.NewString(), eventID, token, expiresAt.UTC(), now); err != nil {
		return "", err
	}
	return token, nil
}

func randomHex(nBytes int) string {
	b := make([]byte, nBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
