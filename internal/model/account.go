package model

import "time"

// Roles an account can hold. Admin is the elevated role: it may read,
// update and delete other accounts and assign roles.
const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleShopOwner = "shop_owner"
)

// ValidRole reports whether s is one of the known role names.
func ValidRole(s string) bool {
	return s == RoleUser || s == RoleAdmin || s == RoleShopOwner
}

// Credential holds the secret material for an account. The password is
// never stored; Salt and Hash are hex-encoded and always set together.
// ResetToken and VerificationToken are the single-slot values that scope
// one-time tokens: a signed reset or verification token is only honoured
// while its embedded copy still matches the stored value here.
type Credential struct {
	Salt              string // hex, 16 random bytes
	Hash              string // hex, PBKDF2-SHA512 output
	ResetToken        string // hex, rotated on every password set
	VerificationToken string // hex, rotated on every email change and on successful verification
}

// Profile carries the mutable, non-secret account details.
type Profile struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"` // mirror of the login email, kept in sync
}

// Account mirrors the `accounts` table.
type Account struct {
	ID                uint64
	Email             string // login email, unique, lowercased
	Credential        Credential
	Verified          bool
	LastVerifiedEmail string // previous verified address, kept when the email changes before reverification
	Role              string
	Profile           Profile
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
