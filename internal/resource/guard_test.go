package resource

import (
	"context"
	"errors"
	"testing"
	"time"

	"eventservices/internal/ledger"
	"eventservices/internal/status"
)

func TestCheckStatusChange(t *testing.T) {
	booking := []ledger.Booking{{ID: "b1", ResourceID: "A", Date: time.Date(2025, 11, 7, 0, 0, 0, 0, time.UTC)}}

	var ce *ledger.ConflictError
	if err := checkStatusChange("A", status.ResourceAvailable, status.ResourceMaintenance, booking); !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError with active bookings, got %v", err)
	}
	if err := checkStatusChange("A", status.ResourceAvailable, status.ResourceMaintenance, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// coming back to AVAILABLE never conflicts
	if err := checkStatusChange("A", status.ResourceMaintenance, status.ResourceAvailable, booking); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ite *status.InvalidTransitionError
	if err := checkStatusChange("A", status.ResourceOutOfService, status.ResourceMaintenance, nil); !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestBookableCheck_WithLedger(t *testing.T) {
	statuses := map[string]status.Status{
		"A": status.ResourceAvailable,
		"B": status.ResourceMaintenance,
	}
	l := ledger.New(ledger.NewMemoryStore(), nil)
	l.CheckResource = BookableCheck(func(_ context.Context, id string) (status.Status, error) {
		st, ok := statuses[id]
		if !ok {
			return "", ErrNotFound
		}
		return st, nil
	})

	ctx := context.Background()
	d := time.Date(2025, 11, 7, 0, 0, 0, 0, time.UTC)
	if _, err := l.Reserve(ctx, "A", d); err != nil {
		t.Fatalf("reserve A: %v", err)
	}

	var ce *ledger.ConflictError
	if _, err := l.Reserve(ctx, "B", d); !errors.As(err, &ce) || ce.Reason == "" {
		t.Fatalf("expected conflict for resource in maintenance, got %v", err)
	}
	if _, err := l.Reserve(ctx, "Z", d); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParseType(t *testing.T) {
	if ty, err := ParseType("worker"); err != nil || ty != TypeWorker {
		t.Fatalf("unexpected %q %v", ty, err)
	}
	if _, err := ParseType("vehicle"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestBookingMeta(t *testing.T) {
	b := ledger.Booking{ID: "b1", ResourceID: "A", EventID: "ev-1", Date: time.Date(2025, 11, 7, 0, 0, 0, 0, time.UTC)}
	meta := bookingMeta(b)
	if meta["bookingId"] != "b1" || meta["resourceId"] != "A" || meta["date"] != "2025-11-07" || meta["eventId"] != "ev-1" {
		t.Fatalf("unexpected meta %v", meta)
	}
	b.EventID = ""
	if _, ok := bookingMeta(b)["eventId"]; ok {
		t.Fatalf("eventId should be omitted for standalone bookings")
	}
	if bookingReleased.action != "RESOURCE_RELEASED" || bookingReleased.entryType != "resource.released" {
		t.Fatalf("unexpected release change %+v", bookingReleased)
	}
}
