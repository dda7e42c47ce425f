// Package auth owns the credential and token logic: password hashing and
// verification, the password strength policy, and issuing/verifying the
// signed session and one-time tokens.
package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/avelkov/user-auth-service/internal/model"
)

const (
	saltBytes    = 16 // random salt length before hex encoding
	oneTimeBytes = 32 // reset/verification token length before hex encoding
	keyBytes     = 64 // derived key length (512 bits)

	// MinIterations is the floor for the PBKDF2 work factor. Configured
	// values below this are raised to it.
	MinIterations = 10000
)

var (
	ErrEmptyPassword = errors.New("password must not be empty")
	ErrInvalidEmail  = errors.New("invalid email address")
)

var emailRe = regexp.MustCompile(`^[\w.-]+@([\w-]+\.)+[\w-]{2,4}$`)

// Hasher derives and verifies password hashes with PBKDF2-SHA512. The
// iteration count is fixed at construction; the derivation is deliberately
// expensive, so callers should treat SetPassword/ValidatePassword as
// blocking CPU-bound work.
type Hasher struct {
	iterations int
}

func NewHasher(iterations int) *Hasher {
	if iterations < MinIterations {
		iterations = MinIterations
	}
	return &Hasher{iterations: iterations}
}

// SetPassword generates a fresh salt, derives the hash for plaintext and
// stores both on the account. It also rotates the account's reset token,
// which invalidates every previously issued password-reset token.
func (h *Hasher) SetPassword(a *model.Account, plaintext string) error {
	if plaintext == "" {
		return ErrEmptyPassword
	}
	salt, err := randomHex(saltBytes)
	if err != nil {
		return err
	}
	reset, err := randomHex(oneTimeBytes)
	if err != nil {
		return err
	}
	a.Credential.Salt = salt
	a.Credential.Hash = h.derive(plaintext, salt)
	a.Credential.ResetToken = reset
	return nil
}

// ValidatePassword recomputes the hash with the stored salt and compares it
// against the stored hash in constant time.
func (h *Hasher) ValidatePassword(a *model.Account, plaintext string) bool {
	if a.Credential.Salt == "" || a.Credential.Hash == "" {
		return false
	}
	got := h.derive(plaintext, a.Credential.Salt)
	return subtle.ConstantTimeCompare([]byte(got), []byte(a.Credential.Hash)) == 1
}

// derive returns the hex-encoded PBKDF2-SHA512 key for the password and
// hex salt. The salt's hex form feeds the KDF directly, so stored salts
// round-trip without decoding.
func (h *Hasher) derive(plaintext, saltHex string) string {
	key := pbkdf2.Key([]byte(plaintext), []byte(saltHex), h.iterations, keyBytes, sha512.New)
	return hex.EncodeToString(key)
}

// SetEmail assigns a new login email to the account. The previous address is
// archived to LastVerifiedEmail if it had been verified, the verified flag is
// cleared, and the verification token is rotated so earlier verification
// links stop working.
func SetEmail(a *model.Account, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !emailRe.MatchString(email) {
		return ErrInvalidEmail
	}
	tok, err := randomHex(oneTimeBytes)
	if err != nil {
		return err
	}
	if a.Verified {
		a.LastVerifiedEmail = a.Email
	}
	a.Email = email
	a.Profile.Email = email
	a.Verified = false
	a.Credential.VerificationToken = tok
	return nil
}

// NewOneTimeToken returns a fresh random value for a one-time token slot.
func NewOneTimeToken() (string, error) {
	return randomHex(oneTimeBytes)
}

// randomHex returns a hex string built from n bytes of secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
