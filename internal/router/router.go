package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/classgate/access/internal/config"
	"github.com/classgate/access/internal/handler"
	"github.com/classgate/access/internal/middleware"
	"github.com/classgate/access/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance: the health check and the verification
// callback. The callback is deliberately unauthenticated (it is invoked
// by the external verification service, not by a logged-in user) and the
// handler treats every field as untrusted input.
func RegisterRoutes(e *echo.Echo, v *handler.VerificationHandler) {
	e.GET("/healthz", handler.Health)
	e.GET("/v1/verify", v.Callback)
}

// RegisterAuth registers the authentication routes. Unauthenticated
// operations live under /v1/auth; the protected /v1/me endpoint
// demonstrates the middleware chain.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleStudent, model.RoleAdmin))
	auth.GET("/me", a.Me)
}

// RegisterAccess registers the entitlement engine's authenticated surface:
// starting a verification flow, redeeming codes and batch passwords,
// toggling basic mode, and the polled access-status endpoint. The status
// route carries the Redis token bucket, since it is the one route clients
// hit every few seconds while waiting for an out-of-band redemption.
func RegisterAccess(e *echo.Echo, cfg config.Config, rdb *redis.Client,
	v *handler.VerificationHandler, p *handler.PasswordHandler, ah *handler.AccessHandler) {

	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(cfg.JWTSecret))
	g.Use(middleware.RequireRole(model.RoleStudent, model.RoleAdmin))

	g.POST("/verification/start", v.Start)
	g.POST("/verification/code", v.VerifyCode)
	g.POST("/batch-passwords/redeem", p.Redeem)
	g.PUT("/access-mode", ah.SetMode)

	polled := e.Group("/v1")
	polled.Use(middleware.JWTAuth(cfg.JWTSecret))
	polled.Use(middleware.RequireRole(model.RoleStudent, model.RoleAdmin))
	polled.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	polled.GET("/access-status", ah.Status)
}

// RegisterAdmin registers the administrative routes under /v1/admin. All
// of them require the ADMIN role.
func RegisterAdmin(e *echo.Echo, cfg config.Config, adm *handler.AdminHandler) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(cfg.JWTSecret))
	g.Use(middleware.RequireRole(model.RoleAdmin))

	g.POST("/grants", adm.Grant)
	g.DELETE("/grants/:user_id", adm.Revoke)
	g.POST("/batch-passwords", adm.CreatePassword)
	g.GET("/batch-passwords", adm.ListPasswords)
	g.PUT("/batch-passwords/:id/deactivate", adm.DeactivatePassword)
	g.DELETE("/batch-passwords/:id", adm.DeletePassword)
	g.GET("/verification-tokens", adm.ListTokens)
}
