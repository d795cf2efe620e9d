package authtoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndVerify(t *testing.T) {
	now := time.Unix(1700000000, 0)

	tok, err := Issue("secret", "event-services", Staff{ID: "staff-1", Name: "Ana", Role: RoleAdmin}, time.Hour, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, err := Verify(tok, "secret", "event-services", now.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.ID != "staff-1" || got.Name != "Ana" || !got.IsAdmin() {
		t.Fatalf("unexpected staff %+v", got)
	}
}

func TestVerify_Expired(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tok, err := Issue("secret", "", Staff{ID: "staff-1"}, time.Minute, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Verify(tok, "secret", "", now.Add(2*time.Minute)); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestVerify_WrongSecretOrIssuer(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tok, err := Issue("secret", "event-services", Staff{ID: "staff-1"}, time.Hour, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Verify(tok, "other", "event-services", now); err == nil {
		t.Fatalf("expected signature mismatch")
	}
	if _, err := Verify(tok, "secret", "someone-else", now); err == nil {
		t.Fatalf("expected issuer mismatch")
	}
}

func TestVerify_RejectsUnknownRole(t *testing.T) {
	now := time.Unix(1700000000, 0)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "staff-1",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Role: "client",
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := Verify(s, "secret", "", now); err == nil {
		t.Fatalf("expected unknown role to be rejected")
	}
}
