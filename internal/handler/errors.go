// Package handler exposes the HTTP surface. Handlers bind request bodies,
// call the account service and translate its typed errors into status
// codes; no business logic lives here.
package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avelkov/user-auth-service/internal/auth"
	"github.com/avelkov/user-auth-service/internal/service"
)

// writeError maps a service error to its HTTP response. Unrecognised
// errors are logged server-side and reported as a generic 500.
func writeError(c echo.Context, err error) error {
	var policy *auth.PolicyError
	switch {
	case errors.As(err, &policy):
		return c.JSON(http.StatusNotAcceptable, echo.Map{
			"error": "invalid password",
			"rules": policy.Failed,
		})
	case errors.Is(err, service.ErrPasswordMismatch),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrResetLinkExpired),
		errors.Is(err, service.ErrVerificationLinkExpired),
		errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrTokenExpired):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrAlreadyVerified):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrEmptyPassword),
		errors.Is(err, service.ErrInvalidRole):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		log.Printf("handler: internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "something went wrong"})
	}
}
