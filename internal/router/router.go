// Package router wires handlers and middleware to routes.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/avelkov/user-auth-service/internal/auth"
	"github.com/avelkov/user-auth-service/internal/config"
	"github.com/avelkov/user-auth-service/internal/handler"
	"github.com/avelkov/user-auth-service/internal/middleware"
	"github.com/avelkov/user-auth-service/internal/model"
)

// Register mounts all routes. Unauthenticated credential operations live
// under /v1/auth; account management under /v1/users requires a session
// token, with the admin-only endpoints additionally role-gated.
func Register(e *echo.Echo, a *handler.AuthHandler, u *handler.UserHandler,
	issuer *auth.Issuer, rdb *redis.Client, cacheCfg config.CacheConfig) {

	e.GET("/healthz", handler.Health)

	// Credential lifecycle: no session required. Signup runs with the
	// optional gate so an admin creating accounts is still identified.
	ag := e.Group("/v1/auth")
	ag.POST("/signup", a.Signup, middleware.Auth(issuer, false))
	ag.POST("/login", a.Login)
	ag.GET("/reset-password", a.RequestReset)
	ag.POST("/reset-password", a.CompleteReset)
	ag.GET("/verify-email", a.VerifyEmail)

	// Public existence probe, served through the Redis response cache.
	e.GET("/v1/users/exists/:email", u.Exists, middleware.Cache(cacheCfg, rdb))

	// Authenticated user management.
	ug := e.Group("/v1/users")
	ug.Use(middleware.Auth(issuer, true))
	ug.GET("", u.Me)
	ug.POST("/update", u.Update)
	ug.POST("/change-password", u.ChangePassword)

	admin := ug.Group("")
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	admin.GET("/all", u.All)
	admin.POST("/delete", u.Delete)
}
