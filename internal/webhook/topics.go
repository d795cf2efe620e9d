package webhook

import "strings"

const (
	TopicPaymentApproved = "payment_approved"
	TopicPaymentRejected = "payment_rejected"
)

// NormalizeTopic converts provider topic strings into a stable internal form.
// Examples:
// - "payment/approved" -> "payment_approved"
// - "Payment.Rejected" -> "payment_rejected"
func NormalizeTopic(topic string) string {
	t := strings.TrimSpace(strings.ToLower(topic))
	t = strings.ReplaceAll(t, "/", "_")
	t = strings.ReplaceAll(t, ".", "_")
	t = strings.ReplaceAll(t, "-", "_")
	for strings.Contains(t, "__") {
		t = strings.ReplaceAll(t, "__", "_")
	}
	return strings.Trim(t, "_")
}
