package event

import (
	"errors"
	"testing"

	"eventservices/internal/status"
)

func TestCheckGates_PaymentsAssignedOnlyViaPlan(t *testing.T) {
	var ge *status.GateError
	if err := checkGates(status.EventPaymentsAssigned, ViaStaff, 0, 0); !errors.As(err, &ge) || ge.Code != "PAYMENT_PLAN_REQUIRED" {
		t.Fatalf("expected PAYMENT_PLAN_REQUIRED, got %v", err)
	}
	if err := checkGates(status.EventPaymentsAssigned, ViaPaymentPlan, 0, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckGates_FinishedNeedsApprovedPayments(t *testing.T) {
	var ge *status.GateError
	if err := checkGates(status.EventFinished, ViaStaff, 3, 1); !errors.As(err, &ge) || ge.Code != "PAYMENTS_PENDING" {
		t.Fatalf("expected PAYMENTS_PENDING, got %v", err)
	}
	if err := checkGates(status.EventFinished, ViaStaff, 0, 0); err == nil {
		t.Fatalf("expected event without payments to be blocked")
	}
	if err := checkGates(status.EventFinished, ViaStaff, 3, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckGates_OtherTargetsUnaffected(t *testing.T) {
	for _, to := range []status.Status{status.EventClientReview, status.EventApproved, status.EventRejected, status.EventFollowUp} {
		if err := checkGates(to, ViaPortal, 0, 0); err != nil {
			t.Fatalf("%s: unexpected error %v", to, err)
		}
	}
}

func TestPortalURL(t *testing.T) {
	wf := Workflow{PortalBaseURL: "https://portal.test/p/"}
	if got := wf.PortalURL("abc"); got != "https://portal.test/p/abc" {
		t.Fatalf("unexpected url %q", got)
	}
	if wf.PortalURL("") != "" {
		t.Fatalf("expected empty url for empty token")
	}
}

func TestCreateRequest_Validate(t *testing.T) {
	ok := CreateRequest{Name: "Boda", ClientName: "Ana", ClientEmail: "ana@x.test", EventDate: "2025-11-07"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := []CreateRequest{
		{ClientName: "Ana", ClientEmail: "ana@x.test"},
		{Name: "Boda", ClientName: "Ana"},
		{Name: "Boda", ClientName: "Ana", ClientEmail: "nope"},
		{Name: "Boda", ClientName: "Ana", ClientPhone: "abc"},
		{Name: "Boda", ClientName: "Ana", ClientEmail: "ana@x.test", EventDate: "07-11-2025"},
	}
	for i, r := range bad {
		if err := r.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}
