package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DeliveryLog records the state of each delivery key.
type DeliveryLog interface {
	// Claim atomically marks key as sending for job. It returns false when key is
	// already delivered, or held by another job whose claim is younger than lease.
	Claim(ctx context.Context, key string, job Job, lease time.Duration) (bool, error)
	// Release hands job's claim back after a failed attempt so a retry can claim again.
	Release(ctx context.Context, key string, job Job, cause error) error
	// MarkDelivered returns true only for the first successful delivery of key.
	MarkDelivered(ctx context.Context, key string, job Job) (bool, error)
	// MarkFailed never overrides a delivered key or another job's claim.
	MarkFailed(ctx context.Context, key string, job Job, cause error) error
}

type DeliveryRecord struct {
	Key       string
	JobID     string
	Type      JobType
	Status    string
	Attempts  int
	LastError string
	UpdatedAt time.Time
}

const (
	DeliverySending   = "sending"
	DeliveryRetrying  = "retrying"
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
)

type MemoryDeliveryLog struct {
	mu      sync.Mutex
	records map[string]DeliveryRecord
}

func NewMemoryDeliveryLog() *MemoryDeliveryLog {
	return &MemoryDeliveryLog{records: map[string]DeliveryRecord{}}
}

func (m *MemoryDeliveryLog) Claim(_ context.Context, key string, job Job, lease time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	r, ok := m.records[key]
	if ok && !r.claimable(job, now, lease) {
		return false, nil
	}
	m.records[key] = DeliveryRecord{
		Key: key, JobID: job.ID, Type: job.Type, Status: DeliverySending,
		Attempts: job.Attempt, LastError: r.LastError, UpdatedAt: now,
	}
	return true, nil
}

func (r DeliveryRecord) claimable(job Job, now time.Time, lease time.Duration) bool {
	switch r.Status {
	case DeliveryDelivered:
		return false
	case DeliverySending:
		return r.JobID == job.ID || now.Sub(r.UpdatedAt) >= lease
	}
	return true
}

func (m *MemoryDeliveryLog) Release(_ context.Context, key string, job Job, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[key]
	if !ok || r.Status != DeliverySending || r.JobID != job.ID {
		return nil
	}
	r.Status = DeliveryRetrying
	r.Attempts = job.Attempt
	r.LastError = cause.Error()
	r.UpdatedAt = time.Now().UTC()
	m.records[key] = r
	return nil
}

func (m *MemoryDeliveryLog) MarkDelivered(_ context.Context, key string, job Job) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records[key].Status == DeliveryDelivered {
		return false, nil
	}
	m.records[key] = DeliveryRecord{
		Key: key, JobID: job.ID, Type: job.Type, Status: DeliveryDelivered,
		Attempts: job.Attempt, UpdatedAt: time.Now().UTC(),
	}
	return true, nil
}

func (m *MemoryDeliveryLog) MarkFailed(_ context.Context, key string, job Job, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.records[key]
	if r.Status == DeliveryDelivered || (r.Status == DeliverySending && r.JobID != job.ID) {
		return nil
	}
	m.records[key] = DeliveryRecord{
		Key: key, JobID: job.ID, Type: job.Type, Status: DeliveryFailed,
		Attempts: job.Attempt, LastError: cause.Error(), UpdatedAt: time.Now().UTC(),
	}
	return nil
}

func (m *MemoryDeliveryLog) Get(key string) (DeliveryRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[key]
	return r, ok
}

// PostgresDeliveryLog keeps delivery state in dispatch_deliveries so restarts don't resend.
type PostgresDeliveryLog struct {
	db *pgxpool.Pool
}

func NewPostgresDeliveryLog(pool *pgxpool.Pool) *PostgresDeliveryLog {
	return &PostgresDeliveryLog{db: pool}
}

// Claim relies on the key primary key: the upsert either inserts the claim or
// takes over a claimable row, and RETURNING reports which happened.
func (p *PostgresDeliveryLog) Claim(ctx context.Context, key string, job Job, lease time.Duration) (bool, error) {
	const q = `
INSERT INTO dispatch_deliveries (key, job_id, job_type, status, attempts, last_error, updated_at)
VALUES ($1, $2, $3, 'sending', $4, NULL, now())
ON CONFLICT (key) DO UPDATE
SET job_id = EXCLUDED.job_id,
    status = 'sending',
    attempts = EXCLUDED.attempts,
    updated_at = now()
WHERE dispatch_deliveries.status IN ('retrying', 'failed')
   OR (dispatch_deliveries.status = 'sending'
       AND (dispatch_deliveries.job_id = EXCLUDED.job_id
            OR dispatch_deliveries.updated_at < now() - $5::bigint * interval '1 millisecond'))
RETURNING key
`
	var k string
	err := p.db.QueryRow(ctx, q, key, job.ID, string(job.Type), job.Attempt, lease.Milliseconds()).Scan(&k)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (p *PostgresDeliveryLog) Release(ctx context.Context, key string, job Job, cause error) error {
	const q = `
UPDATE dispatch_deliveries
SET status = 'retrying', attempts = $3, last_error = $4, updated_at = now()
WHERE key = $1 AND job_id = $2 AND status = 'sending'
`
	_, err := p.db.Exec(ctx, q, key, job.ID, job.Attempt, cause.Error())
	return err
}

func (p *PostgresDeliveryLog) MarkDelivered(ctx context.Context, key string, job Job) (bool, error) {
	const q = `
INSERT INTO dispatch_deliveries (key, job_id, job_type, status, attempts, last_error, updated_at)
VALUES ($1, $2, $3, 'delivered', $4, NULL, now())
ON CONFLICT (key) DO UPDATE
SET job_id = EXCLUDED.job_id,
    status = 'delivered',
    attempts = EXCLUDED.attempts,
    last_error = NULL,
    updated_at = now()
WHERE dispatch_deliveries.status <> 'delivered'
RETURNING key
`
	var k string
	err := p.db.QueryRow(ctx, q, key, job.ID, string(job.Type), job.Attempt).Scan(&k)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (p *PostgresDeliveryLog) MarkFailed(ctx context.Context, key string, job Job, cause error) error {
	const q = `
INSERT INTO dispatch_deliveries (key, job_id, job_type, status, attempts, last_error, updated_at)
VALUES ($1, $2, $3, 'failed', $4, $5, now())
ON CONFLICT (key) DO UPDATE
SET job_id = EXCLUDED.job_id,
    status = 'failed',
    attempts = EXCLUDED.attempts,
    last_error = EXCLUDED.last_error,
    updated_at = now()
WHERE dispatch_deliveries.status <> 'delivered'
  AND (dispatch_deliveries.status <> 'sending' OR dispatch_deliveries.job_id = EXCLUDED.job_id)
`
	_, err := p.db.Exec(ctx, q, key, job.ID, string(job.Type), job.Attempt, cause.Error())
	return err
}
