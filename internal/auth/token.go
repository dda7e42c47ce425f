package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avelkov/user-auth-service/internal/model"
)

var (
	// ErrTokenInvalid covers malformed tokens, bad signatures and
	// unexpected signing methods.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned when the exp claim lies in the past.
	ErrTokenExpired = errors.New("token expired")
)

// SessionClaims assert an account's identity and role for the session TTL.
// Session tokens are stateless: nothing is stored server-side and validity
// is purely signature plus expiry.
type SessionClaims struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// ResetClaims carry the account id plus a copy of the reset token stored on
// the account at issuance time. The caller must separately check that copy
// against the current stored value; a mismatch means the token was already
// consumed or superseded.
type ResetClaims struct {
	ID         uint64 `json:"id"`
	ResetToken string `json:"reset_token"`
	jwt.RegisteredClaims
}

// VerificationClaims mirror ResetClaims for the email verification flow.
type VerificationClaims struct {
	ID                uint64 `json:"id"`
	VerificationToken string `json:"verification_token"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies HS256 tokens. The secret is loaded once at
// startup and never rotated at runtime.
type Issuer struct {
	secret     []byte
	sessionTTL time.Duration
	resetTTL   time.Duration
	verifyTTL  time.Duration
}

func NewIssuer(secret string, sessionTTL, resetTTL, verifyTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		resetTTL:   resetTTL,
		verifyTTL:  verifyTTL,
	}
}

// SessionTTL reports the configured session lifetime, used by handlers to
// fill the expire field of auth payloads.
func (i *Issuer) SessionTTL() time.Duration { return i.sessionTTL }

// IssueSession signs a session token embedding the account's id, email and
// role.
func (i *Issuer) IssueSession(a *model.Account) (string, error) {
	now := time.Now().UTC()
	claims := SessionClaims{
		ID:    a.ID,
		Email: a.Email,
		Role:  a.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.sessionTTL)),
		},
	}
	return i.sign(claims)
}

// IssueReset signs a password-reset token scoped to the account's current
// stored reset token.
func (i *Issuer) IssueReset(a *model.Account) (string, error) {
	now := time.Now().UTC()
	claims := ResetClaims{
		ID:         a.ID,
		ResetToken: a.Credential.ResetToken,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.resetTTL)),
		},
	}
	return i.sign(claims)
}

// IssueVerification signs an email-verification token scoped to the
// account's current stored verification token.
func (i *Issuer) IssueVerification(a *model.Account) (string, error) {
	now := time.Now().UTC()
	claims := VerificationClaims{
		ID:                a.ID,
		VerificationToken: a.Credential.VerificationToken,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.verifyTTL)),
		},
	}
	return i.sign(claims)
}

// VerifySession decodes and validates a session token.
func (i *Issuer) VerifySession(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := i.parse(raw, claims); err != nil {
		return nil, err
	}
	if expired(claims.RegisteredClaims) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

// VerifyReset decodes and validates a reset token. Single-use semantics are
// not checked here; the caller compares the embedded reset token against the
// account's stored value.
func (i *Issuer) VerifyReset(raw string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if err := i.parse(raw, claims); err != nil {
		return nil, err
	}
	if expired(claims.RegisteredClaims) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

// VerifyVerification decodes and validates an email-verification token.
func (i *Issuer) VerifyVerification(raw string) (*VerificationClaims, error) {
	claims := &VerificationClaims{}
	if err := i.parse(raw, claims); err != nil {
		return nil, err
	}
	if expired(claims.RegisteredClaims) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

func (i *Issuer) sign(claims jwt.Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(i.secret)
}

func (i *Issuer) parse(raw string, claims jwt.Claims) error {
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}
	if !tok.Valid {
		return ErrTokenInvalid
	}
	return nil
}

// expired re-checks the exp claim against the wall clock instead of relying
// only on the parser's validation.
func expired(c jwt.RegisteredClaims) bool {
	return c.ExpiresAt != nil && time.Now().After(c.ExpiresAt.Time)
}
