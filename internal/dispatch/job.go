package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type JobType string

const (
	JobMail     JobType = "mail"
	JobWhatsApp JobType = "whatsapp"
)

type Job struct {
	ID   string  `json:"id"`
	Type JobType `json:"type"`
	// Key identifies the logical delivery; duplicate jobs sharing a key are sent once.
	Key        string          `json:"key"`
	Payload    json.RawMessage `json:"payload"`
	Attempt    int             `json:"attempt"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
}

func (j Job) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return Permanent(fmt.Errorf("decode %s payload: %w", j.Type, err))
	}
	return nil
}

type Handler interface {
	Handle(ctx context.Context, job Job) error
}

type HandlerFunc func(ctx context.Context, job Job) error

func (f HandlerFunc) Handle(ctx context.Context, job Job) error {
	return f(ctx, job)
}

// DispatchError is what a job that exhausted its attempts ends with.
type DispatchError struct {
	JobID    string
	Type     JobType
	Attempts int
	Err      error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s job %s failed after %d attempt(s): %v", e.Type, e.JobID, e.Attempts, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
