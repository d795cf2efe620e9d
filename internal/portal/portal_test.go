package portal

import (
	"errors"
	"testing"
	"time"

	"eventservices/internal/event"
	"eventservices/internal/status"
	"eventservices/internal/timeline"
)

func TestTokenRecord_Usable(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	revoked := now.Add(-time.Hour)

	if !(TokenRecord{ExpiresAt: now.Add(time.Minute)}).usable(now) {
		t.Fatalf("expected fresh token to be usable")
	}
	if (TokenRecord{ExpiresAt: now}).usable(now) {
		t.Fatalf("token expiring now must not be usable")
	}
	if (TokenRecord{ExpiresAt: now.Add(time.Hour), RevokedAt: &revoked}).usable(now) {
		t.Fatalf("revoked token must not be usable")
	}
}

func TestCheckReviewable(t *testing.T) {
	if err := checkReviewable(&event.Event{Status: status.EventClientReview}, status.EventApproved); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// FOLLOW_UP -> REJECTED is in the table but the client can only act during review.
	var ite *status.InvalidTransitionError
	err := checkReviewable(&event.Event{Status: status.EventFollowUp}, status.EventRejected)
	if !errors.As(err, &ite) || ite.From != status.EventFollowUp {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestClientEntry(t *testing.T) {
	cases := map[status.Status]string{
		status.EventApproved: timeline.TypeClientApproved,
		status.EventFollowUp: timeline.TypeClientFollowUp,
		status.EventRejected: timeline.TypeClientRejected,
	}
	for next, want := range cases {
		if got, _ := clientEntry(next); got != want {
			t.Fatalf("%s: expected %s, got %s", next, want, got)
		}
	}
}

func TestRandomHex(t *testing.T) {
	a, b := randomHex(32), randomHex(32)
	if len(a) != 64 || a == b {
		t.Fatalf("unexpected tokens %q %q", a, b)
	}
}
