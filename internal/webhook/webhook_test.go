package webhook

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"eventservices/internal/payment"
	"eventservices/internal/status"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"paymentId":"p1"}`)
	sig := Sign(body, "s3cret")

	if !VerifySignature(body, sig, "s3cret") {
		t.Fatalf("expected valid signature")
	}
	if VerifySignature(body, sig, "other") {
		t.Fatalf("expected mismatch with wrong secret")
	}
	if VerifySignature([]byte(`{"paymentId":"p2"}`), sig, "s3cret") {
		t.Fatalf("expected mismatch with tampered body")
	}
	if VerifySignature(body, "", "s3cret") || VerifySignature(body, sig, "") {
		t.Fatalf("empty signature or secret must fail")
	}
}

func TestNormalizeTopic(t *testing.T) {
	cases := map[string]string{
		"payment/approved":   TopicPaymentApproved,
		"Payment.Rejected":   TopicPaymentRejected,
		"/payment--approved": TopicPaymentApproved,
	}
	for in, want := range cases {
		if got := NormalizeTopic(in); got != want {
			t.Fatalf("%q: expected %q, got %q", in, want, got)
		}
	}
}

func TestDecision(t *testing.T) {
	d, err := decision(TopicPaymentApproved, paymentPayload{})
	if err != nil || d.To != status.PaymentApproved {
		t.Fatalf("unexpected %+v %v", d, err)
	}

	d, err = decision(TopicPaymentRejected, paymentPayload{Reason: "bounced"})
	if err != nil || d.To != status.PaymentRejected || d.IssueCategory != string(payment.IssueOther) {
		t.Fatalf("expected rejection filed as OTHER, got %+v %v", d, err)
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("provider rejection must validate: %v", err)
	}

	d, _ = decision(TopicPaymentRejected, paymentPayload{IssueCategory: "expired"})
	if d.IssueCategory != "expired" {
		t.Fatalf("expected category kept, got %q", d.IssueCategory)
	}

	if _, err := decision("payment_refunded", paymentPayload{}); !errors.Is(err, errIgnored) {
		t.Fatalf("expected errIgnored, got %v", err)
	}
}

func TestPaymentPayload_IDFallsBackToNote(t *testing.T) {
	if got := (paymentPayload{PaymentID: " p1 ", Note: "payment_id=p2"}).paymentID(); got != "p1" {
		t.Fatalf("expected p1, got %q", got)
	}
	if got := (paymentPayload{Note: "ref payment_id=p2"}).paymentID(); got != "p2" {
		t.Fatalf("expected p2, got %q", got)
	}
}

func TestServeHTTP_RejectsBadSignature(t *testing.T) {
	h := Handler{Secret: "s3cret"}
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/payments/payment_approved", strings.NewReader(`{"paymentId":"p1"}`))
	req.Header.Set(SignatureHeader, "bogus")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
