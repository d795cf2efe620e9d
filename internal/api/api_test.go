package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eventservices/internal/ledger"
	"eventservices/internal/status"
	"eventservices/internal/validate"
	"eventservices/pkg/authtoken"
	"eventservices/pkg/config"
)

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) APIError {
	t.Helper()
	var env ErrorEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rr.Body.String())
	}
	return env.Error
}

func TestWriteDomainError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{validate.ValidationError{Code: "VALIDATION_FAILED", Field: "date", Message: "bad date"}, http.StatusBadRequest, "VALIDATION_FAILED"},
		{fmt.Errorf("patch: %w", &status.InvalidTransitionError{Entity: status.EntityEvent, From: "APPROVED", To: "REJECTED"}), http.StatusConflict, "INVALID_STATE_TRANSITION"},
		{&ledger.ConflictError{ResourceID: "A", Date: time.Date(2025, 11, 7, 0, 0, 0, 0, time.UTC)}, http.StatusConflict, "CONFLICT"},
		{&status.GateError{Code: "PAYMENTS_PENDING", Message: "2 payments are not approved"}, http.StatusConflict, "PAYMENTS_PENDING"},
		{fmt.Errorf("load: %w", NotFoundError("event")), http.StatusNotFound, "NOT_FOUND"},
		{ledger.ErrResourceRequired, http.StatusBadRequest, "VALIDATION_FAILED"},
		{fmt.Errorf("lock resource A: %w", ledger.ErrLockTimeout), http.StatusServiceUnavailable, "RESOURCE_BUSY"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, c := range cases {
		rr := httptest.NewRecorder()
		WriteDomainError(rr, c.err, "failed")
		if rr.Code != c.status {
			t.Fatalf("%v: expected %d, got %d", c.err, c.status, rr.Code)
		}
		if got := decodeEnvelope(t, rr); got.Code != c.code {
			t.Fatalf("%v: expected code %s, got %s", c.err, c.code, got.Code)
		}
	}
}

type createBody struct {
	Name string `json:"name"`
}

func (b createBody) Validate() error { return validate.Required("name", b.Name) }

func TestDecodeJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":""}`))
	var b createBody
	var ve validate.ValidationError
	if err := DecodeJSON(r, &b); !errors.As(err, &ve) || ve.Field != "name" {
		t.Fatalf("expected name validation error, got %v", err)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","extra":1}`))
	if err := DecodeJSON(r, &b); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
}

func TestStaffAuth(t *testing.T) {
	cfg := config.Config{AppEnv: "prod", Auth: config.AuthConfig{JWTSecret: "secret", Issuer: "event-services"}}
	var seen *authtoken.Staff
	h := StaffAuth(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = StaffFromContext(r.Context())
	}))

	tok, err := authtoken.Issue("secret", "event-services", authtoken.Staff{ID: "staff-9"}, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	if seen == nil || seen.ID != "staff-9" {
		t.Fatalf("expected staff in context, got %+v", seen)
	}

	// no dev fallback in prod
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Staff-Id", "someone")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 in prod, got %d", rr.Code)
	}

	cfg.AppEnv = "dev"
	seen = nil
	StaffAuth(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = StaffFromContext(r.Context())
	})).ServeHTTP(httptest.NewRecorder(), r)
	if seen == nil || seen.ID != "someone" {
		t.Fatalf("expected dev fallback staff, got %+v", seen)
	}
}

func TestRequestIDAndAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := RequestID(AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	r := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	r.Header.Set(RequestIDHeader, "req-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)

	if rr.Header().Get(RequestIDHeader) != "req-1" {
		t.Fatalf("expected request id echoed")
	}
	line := buf.String()
	if !strings.Contains(line, `"request_id":"req-1"`) || !strings.Contains(line, `"status":418`) {
		t.Fatalf("unexpected access log %q", line)
	}
}

func TestCORSMiddleware(t *testing.T) {
	h := CORSMiddleware(CORSOptions{AllowedOrigins: []string{"https://portal.test"}})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodOptions, "/portal/x", nil)
	r.Header.Set("Origin", "https://portal.test")
	r.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	if rr.Code != http.StatusNoContent || rr.Header().Get("Access-Control-Allow-Origin") != "https://portal.test" {
		t.Fatalf("unexpected preflight response %d %v", rr.Code, rr.Header())
	}
	if rr.Header().Get("Access-Control-Max-Age") != "600" {
		t.Fatalf("expected max age 600")
	}

	r = httptest.NewRequest(http.MethodGet, "/portal/x", nil)
	r.Header.Set("Origin", "https://evil.test")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("origin should not be allowed")
	}
	if rr.Code != http.StatusOK {
		t.Fatalf("disallowed origin still reaches the handler, got %d", rr.Code)
	}

	// OPTIONS without a preflight header is an ordinary request.
	r = httptest.NewRequest(http.MethodOptions, "/portal/x", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected handler response, got %d", rr.Code)
	}
}
