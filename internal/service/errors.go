package service

import "errors"

// Domain failures surfaced to the HTTP boundary, which maps each one to a
// status code. Weak passwords are reported separately via *auth.PolicyError
// so the full rule list travels with the error.
var (
	ErrPasswordMismatch        = errors.New("passwords do not match")
	ErrInvalidCredentials      = errors.New("invalid email or password")
	ErrEmailTaken              = errors.New("email already exists")
	ErrNotFound                = errors.New("account not found")
	ErrForbidden               = errors.New("forbidden")
	ErrInvalidRole             = errors.New("unknown role")
	ErrResetLinkExpired        = errors.New("reset link expired, please request a new one")
	ErrVerificationLinkExpired = errors.New("verification link expired")
	ErrAlreadyVerified         = errors.New("email already verified")
)
