package payment

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"eventservices/internal/status"
	"eventservices/internal/validate"
)

func TestDecision_Validate(t *testing.T) {
	if err := (Decision{To: status.PaymentApproved}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ve validate.ValidationError
	if err := (Decision{To: status.PaymentRejected}).Validate(); !errors.As(err, &ve) || ve.Code != "ISSUE_CATEGORY_REQUIRED" {
		t.Fatalf("expected ISSUE_CATEGORY_REQUIRED, got %v", err)
	}
	if err := (Decision{To: status.PaymentRejected, IssueCategory: "wrong_account"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Decision{To: status.PaymentPending}).Validate(); err == nil {
		t.Fatalf("expected PENDING to be refused as a decision")
	}
}

func TestAssignPlanRequest_DefaultsFinalAndCurrency(t *testing.T) {
	req := AssignPlanRequest{
		Total: decimal.NewFromInt(1000),
		Installments: []InstallmentTemplate{
			{Type: InstallmentPercentage, Value: decimal.NewFromInt(30)},
			{Type: InstallmentPercentage, Value: decimal.NewFromInt(70)},
		},
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Currency != "CLP" {
		t.Fatalf("expected default currency, got %q", req.Currency)
	}
	if !req.Installments[1].IsFinal || req.Installments[0].IsFinal {
		t.Fatalf("expected last installment to become final")
	}

	req.Currency = "pesos"
	if err := req.Validate(); err == nil {
		t.Fatalf("expected invalid currency")
	}
}
