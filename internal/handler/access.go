package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/classgate/access/internal/access"
	"github.com/classgate/access/internal/middleware"
	"github.com/classgate/access/internal/repository"
)

// AccessHandler serves the polled access decision. Status is read-only and
// designed for high call frequency: one entitlement lookup, one user
// lookup, no mutation, no blocking.
type AccessHandler struct {
	Users        *repository.UserRepo
	Entitlements *repository.EntitlementRepo
}

// NewAccessHandler constructs an AccessHandler. All dependencies must be
// non-nil.
func NewAccessHandler(users *repository.UserRepo, ents *repository.EntitlementRepo) *AccessHandler {
	if users == nil || ents == nil {
		panic("nil repository passed to NewAccessHandler")
	}
	return &AccessHandler{Users: users, Entitlements: ents}
}

// Status handles GET /v1/access-status?classification=premium|basic.
// Validity is recomputed from the stored expiry on every call; responses
// must never be cached, since polling clients rely on observing the grant
// the moment the out-of-band redemption lands.
func (h *AccessHandler) Status(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	classification := strings.ToLower(strings.TrimSpace(c.QueryParam("classification")))
	if classification != access.ClassificationBasic {
		classification = access.ClassificationPremium
	}
	ctx := c.Request().Context()

	sub := access.Subject{IsAdmin: middleware.IsAdmin(c)}
	if !sub.IsAdmin {
		u, err := h.Users.GetByID(ctx, userID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server_error"})
		}
		sub.BasicMode = u.BasicMode

		ent, err := h.Entitlements.GetByUser(ctx, userID)
		switch {
		case err == nil:
			sub.HasEntitlement = true
			sub.ExpiresAt = ent.ExpiresAt
		case errors.Is(err, repository.ErrNoEntitlement):
			// no grant; decision falls through to basic/deny
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server_error"})
		}
	}

	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, access.Decide(time.Now().UTC(), sub, classification))
}

// SetMode handles PUT /v1/access-mode. It records the user's basic-only
// content opt-in. The flag never grants premium access; it only unlocks
// content classified as basic.
func (h *AccessHandler) SetMode(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Basic bool `json:"basic"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Users.SetBasicMode(c.Request().Context(), userID, body.Basic); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server_error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"basic": body.Basic})
}
