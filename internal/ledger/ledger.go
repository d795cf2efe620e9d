package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DateLayout = "2006-01-02"

var ErrResourceRequired = errors.New("resource id is required")

// Booking is a reserved (resource, day) pair.
type Booking struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resourceId"`
	EventID    string    `json:"eventId,omitempty"`
	Date       time.Time `json:"date"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ConflictError struct {
	ResourceID string
	Date       time.Time
	Reason     string
}

func (e *ConflictError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("resource %s: %s", e.ResourceID, e.Reason)
	}
	return fmt.Sprintf("resource %s is already booked on %s", e.ResourceID, e.Date.Format(DateLayout))
}

// Store persists bookings. Insert must return *ConflictError when the
// (resource, date) pair already exists. Delete returns the removed booking;
// an unknown id reports false without an error.
type Store interface {
	Insert(ctx context.Context, b Booking) error
	Delete(ctx context.Context, id string) (Booking, bool, error)
	Exists(ctx context.Context, resourceID string, date time.Time) (bool, error)
	// List returns bookings of the resource with from <= date, and date <= to when to is non-zero.
	List(ctx context.Context, resourceID string, from, to time.Time) ([]Booking, error)
}

type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type Ledger struct {
	store  Store
	locker Locker
	now    func() time.Time

	// CheckResource runs under the resource lock before a booking is written.
	CheckResource func(ctx context.Context, resourceID string) error
}

func New(store Store, locker Locker) *Ledger {
	if locker == nil {
		locker = NewKeyedMutex()
	}
	return &Ledger{store: store, locker: locker, now: time.Now}
}

func lockKey(resourceID string) string {
	return "ledger:resource:" + resourceID
}

// Reserve books the resource for the calendar day of date.
func (l *Ledger) Reserve(ctx context.Context, resourceID string, date time.Time) (string, error) {
	return l.ReserveForEvent(ctx, resourceID, "", date)
}

func (l *Ledger) ReserveForEvent(ctx context.Context, resourceID, eventID string, date time.Time) (string, error) {
	resourceID = strings.TrimSpace(resourceID)
	if resourceID == "" {
		return "", ErrResourceRequired
	}
	day := Day(date)

	var id string
	err := l.WithResourceLock(ctx, resourceID, func(ctx context.Context) error {
		if l.CheckResource != nil {
			if err := l.CheckResource(ctx, resourceID); err != nil {
				return err
			}
		}
		taken, err := l.store.Exists(ctx, resourceID, day)
		if err != nil {
			return err
		}
		if taken {
			return &ConflictError{ResourceID: resourceID, Date: day}
		}
		b := Booking{
			ID:         uuid.NewString(),
			ResourceID: resourceID,
			EventID:    strings.TrimSpace(eventID),
			Date:       day,
			CreatedAt:  l.now().UTC(),
		}
		if err := l.store.Insert(ctx, b); err != nil {
			return err
		}
		id = b.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Release removes the booking and returns it. Releasing an unknown or
// already released id is a no-op that reports false.
func (l *Ledger) Release(ctx context.Context, bookingID string) (Booking, bool, error) {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return Booking{}, false, nil
	}
	return l.store.Delete(ctx, bookingID)
}

// Bookings lists bookings in [from, to]; a zero to means unbounded.
func (l *Ledger) Bookings(ctx context.Context, resourceID string, from, to time.Time) ([]Booking, error) {
	var f, t time.Time
	if !from.IsZero() {
		f = Day(from)
	}
	if !to.IsZero() {
		t = Day(to)
	}
	return l.store.List(ctx, resourceID, f, t)
}

// ActiveBookings returns bookings dated today or later.
func (l *Ledger) ActiveBookings(ctx context.Context, resourceID string) ([]Booking, error) {
	return l.store.List(ctx, resourceID, Day(l.now()), time.Time{})
}

// WithResourceLock runs fn while holding the per-resource lock used by Reserve.
func (l *Ledger) WithResourceLock(ctx context.Context, resourceID string, fn func(ctx context.Context) error) error {
	unlock, err := l.locker.Lock(ctx, lockKey(resourceID))
	if err != nil {
		return fmt.Errorf("lock resource %s: %w", resourceID, err)
	}
	defer unlock()
	return fn(ctx)
}

// Day truncates t to its calendar date, expressed as UTC midnight.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}
