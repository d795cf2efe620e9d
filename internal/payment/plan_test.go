package payment

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"eventservices/internal/validate"
)

func TestCalculateInstallments_RoundingDeltaGoesToFinal(t *testing.T) {
	total := decimal.RequireFromString("100.00")
	templates := []InstallmentTemplate{
		{Type: InstallmentPercentage, Value: decimal.RequireFromString("33.333")},
		{Type: InstallmentPercentage, Value: decimal.RequireFromString("33.333")},
		{Type: InstallmentPercentage, Value: decimal.RequireFromString("33.334"), IsFinal: true},
	}

	got, err := CalculateInstallments(total, templates, DefaultCurrencyScale)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(got))
	}

	sum := decimal.Zero
	for _, in := range got {
		sum = sum.Add(in.Amount)
	}
	if !sum.Equal(total) {
		t.Fatalf("expected sum %s, got %s", total, sum)
	}
	if !got[2].Amount.Equal(decimal.RequireFromString("33.34")) {
		t.Fatalf("expected final 33.34, got %s", got[2].Amount)
	}
	if got[0].Label != "Deposit" || got[1].Label != "Installment 2" || got[2].Label != "Final payment" {
		t.Fatalf("unexpected labels %q %q %q", got[0].Label, got[1].Label, got[2].Label)
	}
}

func TestCalculateInstallments_FixedDepositThenRemainder(t *testing.T) {
	total := decimal.RequireFromString("1500")
	templates := []InstallmentTemplate{
		{Label: "Reserva", Type: InstallmentFixed, Value: decimal.RequireFromString("200")},
		{Type: InstallmentPercentage, Value: decimal.RequireFromString("50")},
		{Type: InstallmentFixed, Value: decimal.RequireFromString("1"), IsFinal: true},
	}

	got, err := CalculateInstallments(total, templates, DefaultCurrencyScale)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].Label != "Reserva" {
		t.Fatalf("expected custom label kept, got %q", got[0].Label)
	}
	// 200 + 750 + 1, delta 549 goes to final
	if !got[2].Amount.Equal(decimal.RequireFromString("550")) {
		t.Fatalf("expected final 550, got %s", got[2].Amount)
	}
}

func TestCalculateInstallments_FinalCannotGoNegative(t *testing.T) {
	total := decimal.RequireFromString("100")
	templates := []InstallmentTemplate{
		{Type: InstallmentFixed, Value: decimal.RequireFromString("90")},
		{Type: InstallmentFixed, Value: decimal.RequireFromString("20"), IsFinal: true},
	}
	// 90 + 20 = 110, delta -10 leaves final at 10: allowed
	if _, err := CalculateInstallments(total, templates, DefaultCurrencyScale); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	templates[0].Value = decimal.RequireFromString("150")
	var ve validate.ValidationError
	if _, err := CalculateInstallments(total, templates, DefaultCurrencyScale); !errors.As(err, &ve) || ve.Code != "FINAL_INSTALLMENT_INVALID" {
		t.Fatalf("expected FINAL_INSTALLMENT_INVALID, got %v", err)
	}
}

func TestValidatePlan(t *testing.T) {
	one := decimal.NewFromInt(1)
	cases := []struct {
		name      string
		templates []InstallmentTemplate
		code      string
	}{
		{"empty", nil, "PAYMENT_PLAN_EMPTY"},
		{"final not last", []InstallmentTemplate{{Type: InstallmentFixed, Value: one, IsFinal: true}, {Type: InstallmentFixed, Value: one}}, "FINAL_INSTALLMENT_NOT_LAST"},
		{"two finals", []InstallmentTemplate{{Type: InstallmentFixed, Value: one, IsFinal: true}, {Type: InstallmentFixed, Value: one, IsFinal: true}}, "FINAL_INSTALLMENT_DUPLICATE"},
		{"no final", []InstallmentTemplate{{Type: InstallmentFixed, Value: one}}, "FINAL_INSTALLMENT_MISSING"},
		{"zero value", []InstallmentTemplate{{Type: InstallmentFixed, Value: decimal.Zero, IsFinal: true}}, "INSTALLMENT_VALUE_INVALID"},
		{"bad type", []InstallmentTemplate{{Type: "weekly", Value: one, IsFinal: true}}, "INSTALLMENT_TYPE_INVALID"},
		{"over 100%", []InstallmentTemplate{{Type: InstallmentPercentage, Value: decimal.NewFromInt(60)}, {Type: InstallmentPercentage, Value: decimal.NewFromInt(50), IsFinal: true}}, "PERCENTAGE_OVER_100"},
	}
	for _, c := range cases {
		var ve validate.ValidationError
		if err := ValidatePlan(c.templates); !errors.As(err, &ve) || ve.Code != c.code {
			t.Fatalf("%s: expected %s, got %v", c.name, c.code, err)
		}
	}
}

func TestParseIssueCategory(t *testing.T) {
	if c, err := ParseIssueCategory("illegible_receipt"); err != nil || c != IssueIllegibleReceipt {
		t.Fatalf("unexpected %q %v", c, err)
	}
	if _, err := ParseIssueCategory("LATE"); err == nil {
		t.Fatalf("expected unknown category error")
	}
	if _, err := ParseIssueCategory(""); err == nil {
		t.Fatalf("expected missing category error")
	}
}
