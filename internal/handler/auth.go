package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avelkov/user-auth-service/internal/service"
)

// dbTimeout bounds the persistence work done on behalf of one request.
const dbTimeout = 5 * time.Second

// AuthHandler serves the unauthenticated credential endpoints: signup,
// login, the password-reset pair and email verification.
type AuthHandler struct {
	Accounts *service.Accounts
}

func NewAuthHandler(accounts *service.Accounts) *AuthHandler {
	return &AuthHandler{Accounts: accounts}
}

// ----- DTOs -----

type signupReq struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password_2"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type resetCompleteReq struct {
	Token     string `json:"token"`
	Password  string `json:"password"`
	Password2 string `json:"password_2"`
}

// Signup creates an account and returns its auth payload.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	payload, err := h.Accounts.Signup(ctx, req.Email, req.Password, req.Password2)
	if err != nil {
		// On signup a taken email reads as an authorization failure, like
		// the other credential rejections on this route. The management
		// endpoints report the same condition as a conflict.
		if errors.Is(err, service.ErrEmailTaken) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": payload})
}

// Login authenticates and returns a fresh session token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	payload, err := h.Accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": payload})
}

// RequestReset mails a password-reset link to the address in the query
// string.
func (h *AuthHandler) RequestReset(c echo.Context) error {
	email := c.QueryParam("email")
	if email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Accounts.RequestPasswordReset(ctx, email); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "reset email sent"})
}

// CompleteReset consumes a reset token and sets the new password.
func (h *AuthHandler) CompleteReset(c echo.Context) error {
	var req resetCompleteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Accounts.CompletePasswordReset(ctx, req.Token, req.Password, req.Password2); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// VerifyEmail consumes the verification token carried in ?t=.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	raw := c.QueryParam("t")
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Accounts.VerifyEmail(ctx, raw); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "email verified"})
}
