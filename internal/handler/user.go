package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avelkov/user-auth-service/internal/middleware"
	"github.com/avelkov/user-auth-service/internal/model"
	"github.com/avelkov/user-auth-service/internal/service"
)

// UserHandler serves the authenticated user-management endpoints.
type UserHandler struct {
	Accounts *service.Accounts
}

func NewUserHandler(accounts *service.Accounts) *UserHandler {
	return &UserHandler{Accounts: accounts}
}

// ----- DTOs -----

type changePasswordReq struct {
	ID          uint64 `json:"id"` // optional explicit target, elevated actors only
	OldPassword string `json:"old_password"`
	Password    string `json:"password"`
	Password2   string `json:"password_2"`
}
type updateReq struct {
	ID    uint64 `json:"id"` // optional explicit target, elevated actors only
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
type deleteReq struct {
	ID uint64 `json:"id"`
}

// userResp is the account without its secret material.
type userResp struct {
	ID                uint64        `json:"id"`
	Email             string        `json:"email"`
	Role              string        `json:"role"`
	Verified          bool          `json:"verified"`
	LastVerifiedEmail string        `json:"last_verified_email,omitempty"`
	Profile           model.Profile `json:"profile"`
}

func toUserResp(a model.Account) userResp {
	return userResp{
		ID:                a.ID,
		Email:             a.Email,
		Role:              a.Role,
		Verified:          a.Verified,
		LastVerifiedEmail: a.LastVerifiedEmail,
		Profile:           a.Profile,
	}
}

// Me returns the caller's own account.
func (h *UserHandler) Me(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing token"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	a, err := h.Accounts.Get(ctx, id.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserResp(a)})
}

// All lists every account. Admin only (enforced by route middleware).
func (h *UserHandler) All(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	accounts, err := h.Accounts.List(ctx)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]userResp, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toUserResp(a))
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

// Update changes profile fields, email or role for the caller or, for
// admins, any named account.
func (h *UserHandler) Update(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing token"})
	}
	var req updateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	err := h.Accounts.Update(ctx, id.ID, id.Role, service.UpdateRequest{
		ID:    req.ID,
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user updated"})
}

// Delete removes an account. Admin only (enforced by route middleware).
func (h *UserHandler) Delete(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing token"})
	}
	var req deleteReq
	if err := c.Bind(&req); err != nil || req.ID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Accounts.Delete(ctx, id.Role, req.ID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user deleted"})
}

// ChangePassword rotates the caller's credential, or another account's when
// the caller is an admin.
func (h *UserHandler) ChangePassword(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing token"})
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	err := h.Accounts.ChangePassword(ctx, id.ID, id.Role, req.ID,
		req.OldPassword, req.Password, req.Password2)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// Exists reports whether an account with the given email exists. Public;
// fronted by the Redis response cache.
func (h *UserHandler) Exists(c echo.Context) error {
	email := c.Param("email")
	if email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	exists, err := h.Accounts.EmailExists(ctx, email)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"exists": exists})
}
