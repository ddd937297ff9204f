package auth

import (
	"errors"
	"testing"
	"time"

	"restaurant-ops/internal/domain"
)

func TestIssueVerifyRoundtrip(t *testing.T) {
	v := NewVerifier("test-secret", time.Hour)
	want := domain.Identity{
		UserID:    "u1",
		CompanyID: "c1",
		Role:      domain.RoleManager,
		Username:  "boss",
	}

	token, err := v.Issue(want)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	got, err := v.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != want {
		t.Errorf("identity = %+v, want %+v", got, want)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewVerifier("secret-a", time.Hour)
	verifier := NewVerifier("secret-b", time.Hour)

	token, err := issuer.Issue(domain.Identity{UserID: "u1", CompanyID: "c1", Role: domain.RoleAdmin, Username: "root"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, err = verifier.Verify(token)
	var authErr *AuthenticationFailedError
	if !errors.As(err, &authErr) {
		t.Fatalf("want AuthenticationFailedError, got %v", err)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	v := NewVerifier("test-secret", -time.Minute)

	token, err := v.Issue(domain.Identity{UserID: "u1", CompanyID: "c1", Role: domain.RoleKitchen, Username: "cook"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, err = v.Verify(token)
	var authErr *AuthenticationFailedError
	if !errors.As(err, &authErr) {
		t.Fatalf("want AuthenticationFailedError, got %v", err)
	}
}

func TestVerifyGarbageToken(t *testing.T) {
	v := NewVerifier("test-secret", time.Hour)
	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := v.Verify(token); err == nil {
			t.Errorf("token %q: want error, got nil", token)
		}
	}
}

func TestVerifyIncompleteClaims(t *testing.T) {
	v := NewVerifier("test-secret", time.Hour)

	token, err := v.Issue(domain.Identity{UserID: "u1", CompanyID: "c1", Role: "janitor", Username: "x"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, err = v.Verify(token)
	var authErr *AuthenticationFailedError
	if !errors.As(err, &authErr) {
		t.Fatalf("unknown role: want AuthenticationFailedError, got %v", err)
	}

	token, err = v.Issue(domain.Identity{CompanyID: "c1", Role: domain.RoleAdmin, Username: "x"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := v.Verify(token); !errors.As(err, &authErr) {
		t.Fatalf("missing user_id: want AuthenticationFailedError, got %v", err)
	}
}
