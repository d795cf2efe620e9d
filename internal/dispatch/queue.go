package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
)

var (
	ErrQueueClosed    = errors.New("dispatch queue is closed")
	ErrUnknownJobType = errors.New("no handler registered for job type")

	errDroppedOnShutdown = errors.New("dropped on shutdown")
)

type Config struct {
	Workers     int
	Buffer      int
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	JobTimeout  time.Duration

	// Jitter is the backoff randomization factor; 0 gives exact doubling.
	Jitter float64

	// ClaimLease is how long a sending claim blocks other jobs with the same key
	// before it is considered abandoned.
	ClaimLease time.Duration
}

// Queue is an in-process, at-least-once job queue with a fixed worker pool.
// Callers never see delivery failures; those end up in the log and the delivery log.
type Queue struct {
	cfg      Config
	logger   *slog.Logger
	delivery DeliveryLog

	mu       sync.RWMutex
	handlers map[JobType]Handler
	closed   bool

	jobs    chan Job
	stop    chan struct{}
	workers sync.WaitGroup
	retries sync.WaitGroup
	once    sync.Once

	now func() time.Time
}

func NewQueue(cfg Config, delivery DeliveryLog, logger *slog.Logger) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 2 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 2 * time.Minute
	}
	if cfg.Jitter < 0 || cfg.Jitter >= 1 {
		cfg.Jitter = 0
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}
	if cfg.ClaimLease <= 0 {
		cfg.ClaimLease = 2 * cfg.JobTimeout
	}
	if delivery == nil {
		delivery = NewMemoryDeliveryLog()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		cfg:      cfg,
		logger:   logger,
		delivery: delivery,
		handlers: map[JobType]Handler{},
		jobs:     make(chan Job, cfg.Buffer),
		stop:     make(chan struct{}),
		now:      time.Now,
	}
}

func (q *Queue) Register(t JobType, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[t] = h
}

func (q *Queue) handler(t JobType) (Handler, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	h, ok := q.handlers[t]
	return h, ok
}

type EnqueueOption func(*Job)

// WithKey sets the idempotency key. Without it every job is its own delivery.
func WithKey(key string) EnqueueOption {
	return func(j *Job) {
		if k := strings.TrimSpace(key); k != "" {
			j.Key = k
		}
	}
}

// Enqueue hands the job to the worker pool and returns its id. It blocks only
// while the buffer is full.
func (q *Queue) Enqueue(ctx context.Context, t JobType, payload any, opts ...EnqueueOption) (string, error) {
	if _, ok := q.handler(t); !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownJobType, t)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", t, err)
	}

	job := Job{
		ID:         uuid.NewString(),
		Type:       t,
		Payload:    raw,
		Attempt:    0,
		EnqueuedAt: q.now().UTC(),
	}
	job.Key = job.ID
	for _, opt := range opts {
		opt(&job)
	}

	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return "", ErrQueueClosed
	}

	select {
	case q.jobs <- job:
		return job.ID, nil
	case <-q.stop:
		return "", ErrQueueClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Run starts the workers and blocks until ctx is done. Cancelling ctx stops intake:
// handlers already running finish within JobTimeout, pending retries and buffered
// jobs are recorded as failed in the delivery log.
func (q *Queue) Run(ctx context.Context) {
	jobCtx := context.WithoutCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.workers.Add(1)
		go q.worker(jobCtx)
	}
	q.logger.Info("dispatch queue started", "workers", q.cfg.Workers, "max_attempts", q.cfg.MaxAttempts)

	<-ctx.Done()
	q.shutdown()

	q.workers.Wait()
	q.retries.Wait()
	dropped := q.drain(jobCtx)
	if n := len(q.jobs); n > 0 {
		q.logger.Warn("dispatch queue stopped with pending jobs", "pending", n)
	}
	q.logger.Info("dispatch queue stopped", "dropped", dropped)
}

func (q *Queue) shutdown() {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		close(q.stop)
	})
}

func (q *Queue) drain(ctx context.Context) int {
	n := 0
	for {
		select {
		case job := <-q.jobs:
			q.drop(ctx, job)
			n++
		default:
			return n
		}
	}
}

func (q *Queue) worker(ctx context.Context) {
	defer q.workers.Done()
	for {
		select {
		case <-q.stop:
			return
		case job := <-q.jobs:
			q.process(ctx, job)
		}
	}
}

func (q *Queue) process(ctx context.Context, job Job) {
	job.Attempt++
	log := q.logger.With("job_id", job.ID, "job_type", job.Type, "attempt", job.Attempt)

	h, ok := q.handler(job.Type)
	if !ok {
		q.fail(ctx, job, Permanent(fmt.Errorf("%w: %s", ErrUnknownJobType, job.Type)))
		return
	}

	// The claim keeps concurrent jobs with the same key from sending twice.
	claimed, err := q.delivery.Claim(ctx, job.Key, job, q.cfg.ClaimLease)
	if err != nil {
		q.failAttempt(ctx, log, job, fmt.Errorf("claim delivery: %w", err))
		return
	}
	if !claimed {
		log.Debug("duplicate delivery skipped", "key", job.Key)
		return
	}

	jctx, cancel := context.WithTimeout(ctx, q.cfg.JobTimeout)
	err = h.Handle(jctx, job)
	cancel()

	if err == nil {
		first, mErr := q.delivery.MarkDelivered(ctx, job.Key, job)
		if mErr != nil {
			log.Warn("mark delivered failed", "err", mErr)
			return
		}
		if first {
			log.Info("job delivered")
		}
		return
	}

	if !IsPermanent(err) && job.Attempt < q.cfg.MaxAttempts {
		if rErr := q.delivery.Release(ctx, job.Key, job, err); rErr != nil {
			log.Warn("release delivery claim failed", "err", rErr)
		}
	}
	q.failAttempt(ctx, log, job, err)
}

// failAttempt retries job with backoff, or fails it for good once the error is
// permanent or attempts are used up.
func (q *Queue) failAttempt(ctx context.Context, log *slog.Logger, job Job, err error) {
	if IsPermanent(err) || job.Attempt >= q.cfg.MaxAttempts {
		q.fail(ctx, job, err)
		return
	}
	delay := q.retryDelay(job.Attempt)
	log.Warn("job failed, retrying", "err", err, "retry_in", delay.String())
	q.retry(ctx, job, delay)
}

func (q *Queue) fail(ctx context.Context, job Job, cause error) {
	derr := &DispatchError{JobID: job.ID, Type: job.Type, Attempts: job.Attempt, Err: cause}
	q.logger.Error("job permanently failed", "job_id", job.ID, "job_type", job.Type, "key", job.Key, "err", derr)
	q.markFailed(ctx, job, derr)
}

// drop records a job the queue gave up on at shutdown, so it is not lost silently.
func (q *Queue) drop(ctx context.Context, job Job) {
	q.logger.Warn("job dropped on shutdown", "job_id", job.ID, "job_type", job.Type, "key", job.Key, "attempts", job.Attempt)
	q.markFailed(ctx, job, &DispatchError{JobID: job.ID, Type: job.Type, Attempts: job.Attempt, Err: errDroppedOnShutdown})
}

func (q *Queue) markFailed(ctx context.Context, job Job, cause error) {
	mctx, cancel := context.WithTimeout(ctx, q.cfg.JobTimeout)
	defer cancel()
	if err := q.delivery.MarkFailed(mctx, job.Key, job, cause); err != nil {
		q.logger.Warn("mark failed failed", "job_id", job.ID, "err", err)
	}
}

func (q *Queue) retry(ctx context.Context, job Job, delay time.Duration) {
	q.retries.Add(1)
	go func() {
		defer q.retries.Done()
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-q.stop:
			q.drop(ctx, job)
			return
		}
		select {
		case q.jobs <- job:
		case <-q.stop:
			q.drop(ctx, job)
		}
	}()
}

// retryDelay grows exponentially from BaseBackoff, capped at MaxBackoff.
func (q *Queue) retryDelay(attempt int) time.Duration {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     q.cfg.BaseBackoff,
		RandomizationFactor: q.cfg.Jitter,
		Multiplier:          2,
		MaxInterval:         q.cfg.MaxBackoff,
	}
	d := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return min(d, q.cfg.MaxBackoff)
}
