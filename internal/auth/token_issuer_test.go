package auth

import (
	"context"
	"testing"
	"time"
)

func newTestIssuer(clock func() time.Time) *TokenIssuer {
	return NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("test-secret"),
		Issuer:        "openwagemap-auth",
		Audience:      "openwagemap-api",
		TokenTTL:      time.Hour,
		Clock:         clock,
	})
}

func TestIssueAndValidateRoundTrip(t *testing.T) {
	issuer := newTestIssuer(nil)
	token, expiresIn, err := issuer.IssueToken(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if expiresIn != 3600 {
		t.Fatalf("expected 3600s expiry, got %d", expiresIn)
	}

	subject, err := issuer.ValidateToken(token)
	if err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if subject != "user-1" {
		t.Fatalf("expected subject user-1, got %q", subject)
	}
}

func TestIssueTokenRequiresSecret(t *testing.T) {
	issuer := NewTokenIssuer(TokenIssuerConfig{})
	if _, _, err := issuer.IssueToken(context.Background(), "user-1"); err == nil {
		t.Fatal("expected error without signing secret")
	}
}

func TestIssueTokenRequiresSubject(t *testing.T) {
	issuer := newTestIssuer(nil)
	if _, _, err := issuer.IssueToken(context.Background(), ""); err == nil {
		t.Fatal("expected error without user id")
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := newTestIssuer(nil)
	token, _, err := issuer.IssueToken(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("different-secret"),
		Issuer:        "openwagemap-auth",
		Audience:      "openwagemap-api",
	})
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatal("expected validation failure for wrong secret")
	}
}

func TestValidateRejectsWrongAudience(t *testing.T) {
	issuer := newTestIssuer(nil)
	token, _, err := issuer.IssueToken(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("test-secret"),
		Issuer:        "openwagemap-auth",
		Audience:      "another-service",
	})
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatal("expected validation failure for wrong audience")
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	issuedAt := time.Unix(1700000000, 0)
	issuer := newTestIssuer(func() time.Time { return issuedAt })
	token, _, err := issuer.IssueToken(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	later := newTestIssuer(func() time.Time { return issuedAt.Add(2 * time.Hour) })
	if _, err := later.ValidateToken(token); err == nil {
		t.Fatal("expected validation failure after expiry")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	issuer := newTestIssuer(nil)
	if _, err := issuer.ValidateToken("not-a-token"); err == nil {
		t.Fatal("expected validation failure for malformed token")
	}
}
