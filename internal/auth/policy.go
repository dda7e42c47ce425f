package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Password policy rule names, reported back to the client in the order the
// rules are checked.
const (
	RuleMin       = "min"
	RuleMax       = "max"
	RuleUppercase = "uppercase"
	RuleLowercase = "lowercase"
	RuleDigits    = "digits"
	RuleSpaces    = "spaces"
	RuleOneOf     = "oneOf"
)

const (
	passwordMinLen = 6
	passwordMaxLen = 32
)

// weakPasswords are rejected outright regardless of the other rules.
var weakPasswords = []string{"Passw0rd", "Password123"}

// PolicyError reports every password rule a candidate violated, in check
// order, so the client can show the full list rather than one failure at a
// time.
type PolicyError struct {
	Failed []string
}

func (e *PolicyError) Error() string {
	return "password rejected: " + strings.Join(e.Failed, ", ")
}

// CheckPassword validates a candidate against the strength policy and
// returns a *PolicyError listing every violated rule, or nil if the
// password is acceptable.
func CheckPassword(p string) error {
	var failed []string
	// Length bounds count characters, not bytes.
	n := utf8.RuneCountInString(p)
	if n < passwordMinLen {
		failed = append(failed, RuleMin)
	}
	if n > passwordMaxLen {
		failed = append(failed, RuleMax)
	}
	var upper, lower, digit, space bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsSpace(r):
			space = true
		}
	}
	if !upper {
		failed = append(failed, RuleUppercase)
	}
	if !lower {
		failed = append(failed, RuleLowercase)
	}
	if !digit {
		failed = append(failed, RuleDigits)
	}
	if space {
		failed = append(failed, RuleSpaces)
	}
	for _, weak := range weakPasswords {
		if p == weak {
			failed = append(failed, RuleOneOf)
			break
		}
	}
	if len(failed) > 0 {
		return &PolicyError{Failed: failed}
	}
	return nil
}
