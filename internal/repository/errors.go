// Package repository implements MySQL persistence for accounts. Sentinel
// errors defined here let the service layer branch on failure kinds without
// inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a lookup, update or delete matches no row.
var ErrNotFound = errors.New("account not found")

// ErrEmailExists is returned when an insert or email change collides with
// the unique index on accounts.email.
var ErrEmailExists = errors.New("email already exists")

// ErrTokenMismatch is returned by the compare-and-rotate credential updates
// when the stored one-time token no longer matches the expected value,
// meaning the token was already consumed or superseded.
var ErrTokenMismatch = errors.New("stored token mismatch")
