// Package middleware contains the request gates applied ahead of handlers:
// token authentication, role authorization and response caching.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/avelkov/user-auth-service/internal/auth"
)

// tokenScheme is the fixed Authorization scheme prefix, e.g.
// "Authorization: Token <jwt>".
const tokenScheme = "Token "

const identityKey = "identity"

// Identity is the authenticated caller resolved from a session token. A
// zero Identity means the request is anonymous.
type Identity struct {
	ID    uint64
	Email string
	Role  string
}

// IdentityFrom returns the identity stored by the Auth middleware. ok is
// false for anonymous requests.
func IdentityFrom(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityKey).(Identity)
	return id, ok
}

// Auth validates the bearer session token and stores the caller's Identity
// in the request context. With required=true a missing token is rejected
// with 401; with required=false the request proceeds anonymously. A token
// that is present but invalid or expired is rejected in both modes.
func Auth(issuer *auth.Issuer, required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, tokenScheme) {
				if required {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing token"})
				}
				return next(c)
			}
			raw := strings.TrimPrefix(header, tokenScheme)

			claims, err := issuer.VerifySession(raw)
			if err != nil {
				msg := "invalid token"
				if err == auth.ErrTokenExpired {
					msg = "token expired"
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
			}

			c.Set(identityKey, Identity{ID: claims.ID, Email: claims.Email, Role: claims.Role})
			return next(c)
		}
	}
}
