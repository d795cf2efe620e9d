package payment

import (
	"strings"

	"github.com/shopspring/decimal"

	"eventservices/internal/validate"
)

type InstallmentType string

const (
	InstallmentFixed      InstallmentType = "fixed"
	InstallmentPercentage InstallmentType = "percentage"
)

type InstallmentTemplate struct {
	Label   string          `json:"label"`
	Type    InstallmentType `json:"type"`
	Value   decimal.Decimal `json:"value"`
	IsFinal bool            `json:"isFinal"`
}

// Installment is an amount computed from a template. Sequence is its index.
type Installment struct {
	Label   string
	Amount  decimal.Decimal
	IsFinal bool
}

type CurrencyScale int32

const DefaultCurrencyScale CurrencyScale = 2

func planError(code, msg string) error {
	return validate.ValidationError{Code: code, Field: "installments", Message: msg}
}

// ValidatePlan enforces the plan contract:
// - at least one installment, every value > 0
// - exactly one final installment, and it is last
// - percentages never exceed 100 in total
func ValidatePlan(templates []InstallmentTemplate) error {
	if len(templates) == 0 {
		return planError("PAYMENT_PLAN_EMPTY", "payment plan needs at least one installment")
	}

	finalIdx := -1
	pct := decimal.Zero
	for i, t := range templates {
		if t.Value.LessThanOrEqual(decimal.Zero) {
			return planError("INSTALLMENT_VALUE_INVALID", "installment value must be > 0")
		}
		switch t.Type {
		case InstallmentFixed:
		case InstallmentPercentage:
			pct = pct.Add(t.Value)
		default:
			return planError("INSTALLMENT_TYPE_INVALID", "installment type must be fixed or percentage")
		}
		if t.IsFinal {
			if finalIdx != -1 {
				return planError("FINAL_INSTALLMENT_DUPLICATE", "exactly one final installment is required")
			}
			finalIdx = i
		}
	}

	if finalIdx == -1 {
		return planError("FINAL_INSTALLMENT_MISSING", "final installment is required")
	}
	if finalIdx != len(templates)-1 {
		return planError("FINAL_INSTALLMENT_NOT_LAST", "final installment must be last")
	}
	if pct.GreaterThan(decimal.NewFromInt(100)) {
		return planError("PERCENTAGE_OVER_100", "percentages add up to more than 100")
	}
	return nil
}

// CalculateInstallments splits total across the templates.
//
// Percentages apply to total (not the remainder). Amounts are rounded to scale and
// the rounding delta goes to the final installment so the sum always equals total.
func CalculateInstallments(total decimal.Decimal, templates []InstallmentTemplate, scale CurrencyScale) ([]Installment, error) {
	if err := ValidatePlan(templates); err != nil {
		return nil, err
	}
	if total.LessThanOrEqual(decimal.Zero) {
		return nil, validate.ValidationError{Code: "PAYMENT_TOTAL_INVALID", Field: "total", Message: "total must be > 0"}
	}
	if scale <= 0 {
		scale = DefaultCurrencyScale
	}
	s := int32(scale)

	out := make([]Installment, 0, len(templates))
	sum := decimal.Zero
	for i, t := range templates {
		var amt decimal.Decimal
		switch t.Type {
		case InstallmentFixed:
			amt = t.Value
		case InstallmentPercentage:
			amt = total.Mul(t.Value).Div(decimal.NewFromInt(100))
		}
		amt = amt.Round(s)
		out = append(out, Installment{Label: labelFor(t.Label, i, t.IsFinal), Amount: amt, IsFinal: t.IsFinal})
		sum = sum.Add(amt)
	}

	want := total.Round(s)
	if delta := want.Sub(sum); !delta.IsZero() {
		last := len(out) - 1
		out[last].Amount = out[last].Amount.Add(delta).Round(s)
		sum = sum.Add(delta).Round(s)
	}

	if !sum.Equal(want) {
		return nil, planError("PAYMENT_PLAN_SUM_MISMATCH", "installments do not sum to total")
	}
	if out[len(out)-1].Amount.LessThanOrEqual(decimal.Zero) {
		return nil, planError("FINAL_INSTALLMENT_INVALID", "final installment amount must be > 0")
	}
	return out, nil
}

func labelFor(label string, i int, final bool) string {
	if l := strings.TrimSpace(label); l != "" {
		return l
	}
	switch {
	case final:
		return "Final payment"
	case i == 0:
		return "Deposit"
	default:
		return "Installment " + decimal.NewFromInt(int64(i+1)).String()
	}
}
