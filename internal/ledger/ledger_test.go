package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDay(s)
	if err != nil {
		t.Fatalf("parse day: %v", err)
	}
	return d
}

func TestReserve_SecondCallConflicts(t *testing.T) {
	l := New(NewMemoryStore(), nil)
	ctx := context.Background()

	if _, err := l.Reserve(ctx, "A", day(t, "2025-11-07")); err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	_, err := l.Reserve(ctx, "A", day(t, "2025-11-07"))
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if ce.ResourceID != "A" {
		t.Fatalf("unexpected conflict %+v", ce)
	}
}

func TestReserve_SameDayDifferentTimes(t *testing.T) {
	l := New(NewMemoryStore(), nil)
	ctx := context.Background()

	morning := time.Date(2025, 11, 7, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2025, 11, 7, 21, 30, 0, 0, time.UTC)
	if _, err := l.Reserve(ctx, "A", morning); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := l.Reserve(ctx, "A", evening); err == nil {
		t.Fatalf("expected conflict for same calendar day")
	}
}

func TestReserve_ResourcesAreIndependent(t *testing.T) {
	l := New(NewMemoryStore(), nil)
	ctx := context.Background()
	d := day(t, "2025-11-07")

	if _, err := l.Reserve(ctx, "A", d); err != nil {
		t.Fatalf("reserve A: %v", err)
	}
	if _, err := l.Reserve(ctx, "B", d); err != nil {
		t.Fatalf("reserve B: %v", err)
	}
	if _, err := l.Reserve(ctx, "A", d.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("reserve A next day: %v", err)
	}
}

func TestReleaseThenReserve(t *testing.T) {
	l := New(NewMemoryStore(), nil)
	ctx := context.Background()
	d := day(t, "2025-11-07")

	id, err := l.ReserveForEvent(ctx, "A", "ev-1", d)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	b, ok, err := l.Release(ctx, id)
	if err != nil || !ok {
		t.Fatalf("release: ok=%v err=%v", ok, err)
	}
	if b.ID != id || b.ResourceID != "A" || b.EventID != "ev-1" || !b.Date.Equal(d) {
		t.Fatalf("release returned %+v", b)
	}
	if _, ok, err := l.Release(ctx, id); err != nil || ok {
		t.Fatalf("second release should be a no-op: ok=%v err=%v", ok, err)
	}
	if _, err := l.Reserve(ctx, "A", d); err != nil {
		t.Fatalf("reserve after release: %v", err)
	}
}

func TestReserve_ConcurrentSingleWinner(t *testing.T) {
	l := New(NewMemoryStore(), nil)
	ctx := context.Background()
	d := day(t, "2025-11-07")

	const n = 64
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := l.Reserve(ctx, "A", d)
			mu.Lock()
			defer mu.Unlock()
			var ce *ConflictError
			switch {
			case err == nil:
				wins++
			case errors.As(err, &ce):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if wins != 1 || conflicts != n-1 {
		t.Fatalf("expected 1 winner and %d conflicts, got %d and %d", n-1, wins, conflicts)
	}
}

// racyStore skips the existence check so only Insert's uniqueness can stop a duplicate.
type racyStore struct{ *MemoryStore }

func (racyStore) Exists(context.Context, string, time.Time) (bool, error) { return false, nil }

func TestReserve_StoreUniquenessIsBackstop(t *testing.T) {
	l := New(racyStore{NewMemoryStore()}, nil)
	ctx := context.Background()
	d := day(t, "2025-11-07")

	if _, err := l.Reserve(ctx, "A", d); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	var ce *ConflictError
	if _, err := l.Reserve(ctx, "A", d); !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError from store, got %v", err)
	}
}

func TestReserve_CheckResourceRunsUnderLock(t *testing.T) {
	l := New(NewMemoryStore(), nil)
	blocked := errors.New("resource out of service")
	l.CheckResource = func(_ context.Context, id string) error {
		if id == "broken" {
			return blocked
		}
		return nil
	}
	if _, err := l.Reserve(context.Background(), "broken", day(t, "2025-11-07")); !errors.Is(err, blocked) {
		t.Fatalf("expected check error, got %v", err)
	}
}

func TestActiveBookings(t *testing.T) {
	l := New(NewMemoryStore(), nil)
	l.now = func() time.Time { return time.Date(2025, 11, 7, 15, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	for _, s := range []string{"2025-11-06", "2025-11-07", "2025-11-20"} {
		if _, err := l.Reserve(ctx, "A", day(t, s)); err != nil {
			t.Fatalf("reserve %s: %v", s, err)
		}
	}
	got, err := l.ActiveBookings(ctx, "A")
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(got) != 2 || got[0].Date.Format(DateLayout) != "2025-11-07" {
		t.Fatalf("unexpected active bookings %+v", got)
	}

	ranged, err := l.Bookings(ctx, "A", day(t, "2025-11-01"), day(t, "2025-11-07"))
	if err != nil {
		t.Fatalf("bookings: %v", err)
	}
	if len(ranged) != 2 {
		t.Fatalf("expected 2 bookings in range, got %d", len(ranged))
	}
}

func TestReserve_RequiresResource(t *testing.T) {
	l := New(NewMemoryStore(), nil)
	if _, err := l.Reserve(context.Background(), "  ", time.Now()); !errors.Is(err, ErrResourceRequired) {
		t.Fatalf("expected ErrResourceRequired, got %v", err)
	}
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	k := NewKeyedMutex()
	unlock, err := k.Lock(context.Background(), "x")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := k.Lock(ctx, "x"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline while held, got %v", err)
	}

	unlock()
	unlock()
	if n := k.size(); n != 0 {
		t.Fatalf("expected no entries left, got %d", n)
	}
}
