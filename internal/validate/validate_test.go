package validate

import (
	"errors"
	"testing"
)

func TestDateAndHour(t *testing.T) {
	if _, err := Date("date", "2025-11-07"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := Date("date", "07/11/2025"); err == nil {
		t.Fatalf("expected invalid date")
	}
	h, err := Hour("hour", "9:05")
	if err != nil || h != "09:05" {
		t.Fatalf("unexpected hour %q %v", h, err)
	}
	if _, err := Hour("hour", "24:00"); err == nil {
		t.Fatalf("expected 24:00 to be rejected")
	}
}

func TestEmailAndPhone(t *testing.T) {
	if err := Email("email", "ana@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Email("email", "Ana <ana@example.com>"); err == nil {
		t.Fatalf("expected display-name form to be rejected")
	}
	if err := Phone("phone", "+56 9 1234-5678"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Phone("phone", "12ab"); err == nil {
		t.Fatalf("expected invalid phone")
	}
}

func TestFirst(t *testing.T) {
	err := First(nil, Required("name", " "), Required("email", ""))
	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Field != "name" {
		t.Fatalf("expected first failing field, got %q", ve.Field)
	}
	if First(nil, nil) != nil {
		t.Fatalf("expected nil")
	}
}
