package auth

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testClaims(ttl time.Duration) Claims {
	now := time.Now()
	return Claims{
		UserID: "42",
		Email:  "patient@example.com",
		Role:   "patient",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func TestHS256RoundTrip(t *testing.T) {
	secret := "test-secret"
	token, err := SignHS256(testClaims(time.Hour), secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	parsed, err := ParseAndVerifyHS256(token, secret)
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256 failed: %v", err)
	}
	if parsed.Identity() != "42" || parsed.Role != "patient" {
		t.Fatalf("claims mismatch: got %+v", parsed)
	}
	if _, err := ParseAndVerifyHS256(token, "wrong-secret"); err == nil {
		t.Fatal("expected verification error with wrong secret")
	}
}

func TestHS256RejectsExpired(t *testing.T) {
	token, err := SignHS256(testClaims(-time.Minute), "s")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "s"); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
	if _, err := ParseUnverified(token); err == nil {
		t.Fatal("expected expired token to be rejected without verification")
	}
}

func TestParseUnverifiedNumericUserID(t *testing.T) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"userId":17,"role":"patient"}`))
	claims, err := ParseUnverified(header + "." + payload + ".c2ln")
	if err != nil {
		t.Fatalf("ParseUnverified failed: %v", err)
	}
	if claims.Identity() != "17" {
		t.Fatalf("expected identity 17, got %q", claims.Identity())
	}
}

func TestIdentityFallsBackToSubject(t *testing.T) {
	c := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-9"}}
	if c.Identity() != "user-9" {
		t.Fatalf("expected subject identity, got %q", c.Identity())
	}
	var none *Claims
	if none.Identity() != "" {
		t.Fatal("nil claims should have no identity")
	}
}
