package auth

import (
	"testing"
	"time"

	"github.com/avelkov/user-auth-service/internal/model"
)

func testAccount() *model.Account {
	return &model.Account{
		ID:    7,
		Email: "test@test.com",
		Role:  model.RoleUser,
		Credential: model.Credential{
			ResetToken:        "reset-abc",
			VerificationToken: "verify-xyz",
		},
	}
}

func TestSessionRoundTrip(t *testing.T) {
	t.Parallel()

	i := NewIssuer("secret", time.Hour, time.Hour, time.Hour)
	a := testAccount()

	raw, err := i.IssueSession(a)
	if err != nil {
		t.Fatalf("IssueSession error: %v", err)
	}
	claims, err := i.VerifySession(raw)
	if err != nil {
		t.Fatalf("VerifySession error: %v", err)
	}
	if claims.ID != a.ID || claims.Email != a.Email || claims.Role != a.Role {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestVerifySessionExpired(t *testing.T) {
	t.Parallel()

	i := NewIssuer("secret", -time.Second, time.Hour, time.Hour)
	raw, err := i.IssueSession(testAccount())
	if err != nil {
		t.Fatalf("IssueSession error: %v", err)
	}
	if _, err := i.VerifySession(raw); err != ErrTokenExpired {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifySessionWrongSecret(t *testing.T) {
	t.Parallel()

	raw, err := NewIssuer("right", time.Hour, time.Hour, time.Hour).IssueSession(testAccount())
	if err != nil {
		t.Fatalf("IssueSession error: %v", err)
	}
	other := NewIssuer("wrong", time.Hour, time.Hour, time.Hour)
	if _, err := other.VerifySession(raw); err != ErrTokenInvalid {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerifySessionMalformed(t *testing.T) {
	t.Parallel()

	i := NewIssuer("secret", time.Hour, time.Hour, time.Hour)
	if _, err := i.VerifySession("not.a.jwt"); err != ErrTokenInvalid {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestResetTokenCarriesStoredValue(t *testing.T) {
	t.Parallel()

	i := NewIssuer("secret", time.Hour, time.Hour, time.Hour)
	a := testAccount()

	raw, err := i.IssueReset(a)
	if err != nil {
		t.Fatalf("IssueReset error: %v", err)
	}
	claims, err := i.VerifyReset(raw)
	if err != nil {
		t.Fatalf("VerifyReset error: %v", err)
	}
	if claims.ID != a.ID {
		t.Fatalf("id = %d, want %d", claims.ID, a.ID)
	}
	if claims.ResetToken != "reset-abc" {
		t.Fatalf("reset token = %q, want %q", claims.ResetToken, "reset-abc")
	}
}

func TestVerificationTokenExpires(t *testing.T) {
	t.Parallel()

	i := NewIssuer("secret", time.Hour, time.Hour, -time.Second)
	raw, err := i.IssueVerification(testAccount())
	if err != nil {
		t.Fatalf("IssueVerification error: %v", err)
	}
	if _, err := i.VerifyVerification(raw); err != ErrTokenExpired {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenKindsNotInterchangeable(t *testing.T) {
	t.Parallel()

	i := NewIssuer("secret", time.Hour, time.Hour, time.Hour)
	a := testAccount()

	raw, err := i.IssueSession(a)
	if err != nil {
		t.Fatalf("IssueSession error: %v", err)
	}
	// A session token parsed as a reset token yields no reset_token claim,
	// so the caller's stored-value comparison fails closed.
	claims, err := i.VerifyReset(raw)
	if err != nil {
		t.Fatalf("VerifyReset error: %v", err)
	}
	if claims.ResetToken != "" {
		t.Fatalf("unexpected reset token %q from session token", claims.ResetToken)
	}
}
