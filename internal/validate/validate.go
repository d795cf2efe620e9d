package validate

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

type ValidationError struct {
	Code    string
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func fail(field, format string, args ...any) error {
	return ValidationError{Code: "VALIDATION_FAILED", Field: field, Message: fmt.Sprintf(format, args...)}
}

func Required(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fail(field, "%s is required", field)
	}
	return nil
}

func MaxLen(field, v string, n int) error {
	if len([]rune(v)) > n {
		return fail(field, "%s must be at most %d characters", field, n)
	}
	return nil
}

// Date accepts YYYY-MM-DD.
func Date(field, v string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, fail(field, "%s must be a date in YYYY-MM-DD format", field)
	}
	return t, nil
}

// Hour accepts 24h HH:MM.
func Hour(field, v string) (string, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return "", fail(field, "%s must be an hour in HH:MM format", field)
	}
	return t.Format("15:04"), nil
}

func Email(field, v string) error {
	v = strings.TrimSpace(v)
	a, err := mail.ParseAddress(v)
	if err != nil || a.Address != v {
		return fail(field, "%s must be a valid email address", field)
	}
	return nil
}

// Phone accepts 8 to 15 digits with optional +, spaces and dashes.
func Phone(field, v string) error {
	digits := 0
	for i, r := range strings.TrimSpace(v) {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0, r == ' ', r == '-':
		default:
			return fail(field, "%s must be a phone number", field)
		}
	}
	if digits < 8 || digits > 15 {
		return fail(field, "%s must be a phone number", field)
	}
	return nil
}

func OneOf(field, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fail(field, "%s must be one of %s", field, strings.Join(allowed, ", "))
}

// First returns the first non-nil error.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
