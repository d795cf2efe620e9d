package notify

import (
	"bytes"
	"fmt"
	"text/template"
)

// Template names.
const (
	TmplEventStatusChanged   = "event.status_changed"
	TmplClientReview         = "event.client_review"
	TmplAppointmentConfirmed = "appointment.confirmed"
	TmplPaymentPlanAssigned  = "payment.plan_assigned"
	TmplPaymentApproved      = "payment.approved"
	TmplPaymentRejected      = "payment.rejected"
)

type messageTemplate struct {
	subject *template.Template
	body    *template.Template
}

func mustTemplate(name, subject, body string) messageTemplate {
	return messageTemplate{
		subject: template.Must(template.New(name + ".subject").Option("missingkey=error").Parse(subject)),
		body:    template.Must(template.New(name + ".body").Option("missingkey=error").Parse(body)),
	}
}

var templates = map[string]messageTemplate{
	TmplEventStatusChanged: mustTemplate(TmplEventStatusChanged,
		`Your event "{{.EventName}}" is now {{.Status}}`,
		`Hi {{.ClientName}}, the status of your event "{{.EventName}}" changed from {{.From}} to {{.Status}}.`),
	TmplClientReview: mustTemplate(TmplClientReview,
		`Please review your event "{{.EventName}}"`,
		`Hi {{.ClientName}}, your event "{{.EventName}}" is ready for your review: {{.PortalURL}}`),
	TmplAppointmentConfirmed: mustTemplate(TmplAppointmentConfirmed,
		`Appointment confirmed for {{.Date}} at {{.Hour}}`,
		`Hi {{.ClientName}}, your appointment for "{{.EventName}}" is confirmed for {{.Date}} at {{.Hour}}.`),
	TmplPaymentPlanAssigned: mustTemplate(TmplPaymentPlanAssigned,
		`Payment plan for "{{.EventName}}"`,
		`Hi {{.ClientName}}, a payment plan of {{.Installments}} installment(s) totalling {{.Total}} {{.Currency}} was assigned to "{{.EventName}}".`),
	TmplPaymentApproved: mustTemplate(TmplPaymentApproved,
		`Payment received for "{{.EventName}}"`,
		`Hi {{.ClientName}}, we approved your payment "{{.Label}}" of {{.Amount}} {{.Currency}}.`),
	TmplPaymentRejected: mustTemplate(TmplPaymentRejected,
		`Payment issue for "{{.EventName}}"`,
		`Hi {{.ClientName}}, we could not approve your payment "{{.Label}}" ({{.IssueCategory}}). {{.Note}} Please upload a new receipt: {{.PortalURL}}`),
}

// Render returns subject and body for the template name.
func Render(name string, data map[string]any) (string, string, error) {
	t, ok := templates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown template %q", name)
	}
	var subj, body bytes.Buffer
	if err := t.subject.Execute(&subj, data); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", name, err)
	}
	if err := t.body.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("render %s body: %w", name, err)
	}
	return subj.String(), body.String(), nil
}
