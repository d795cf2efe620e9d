package resource

import (
	"context"
	"fmt"

	"eventservices/internal/ledger"
	"eventservices/internal/status"
)

// StatusLookup loads the current status of a resource.
type StatusLookup func(ctx context.Context, id string) (status.Status, error)

// BookableCheck builds the ledger hook that refuses bookings for unknown or unavailable resources.
func BookableCheck(lookup StatusLookup) func(ctx context.Context, resourceID string) error {
	return func(ctx context.Context, resourceID string) error {
		st, err := lookup(ctx, resourceID)
		if err != nil {
			return err
		}
		if st != status.ResourceAvailable {
			return &ledger.ConflictError{ResourceID: resourceID, Reason: fmt.Sprintf("resource is %s", st)}
		}
		return nil
	}
}

// checkStatusChange validates the transition and refuses to take a resource out
// of AVAILABLE while it still has bookings from today on.
func checkStatusChange(resourceID string, from, to status.Status, active []ledger.Booking) error {
	if err := status.Validate(status.EntityResource, from, to); err != nil {
		return err
	}
	if from == status.ResourceAvailable && len(active) > 0 {
		return &ledger.ConflictError{
			ResourceID: resourceID,
			Date:       active[0].Date,
			Reason:     fmt.Sprintf("resource has %d active booking(s), next on %s", len(active), active[0].Date.Format(ledger.DateLayout)),
		}
	}
	return nil
}
