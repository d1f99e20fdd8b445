package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/classgate/access/internal/model"
	"github.com/classgate/access/internal/queue"
	"github.com/classgate/access/internal/repository"
)

// AdminHandler groups the administrative operations on the entitlement
// engine: direct grants and revocations, batch password management, and
// read access to the verification token ledger. All routes are gated by
// RequireRole(ADMIN).
type AdminHandler struct {
	Entitlements *repository.EntitlementRepo
	Passwords    *repository.BatchPasswordRepo
	Tokens       *repository.VerificationTokenRepo
}

// NewAdminHandler constructs an AdminHandler. All dependencies must be
// non-nil.
func NewAdminHandler(ents *repository.EntitlementRepo, passwords *repository.BatchPasswordRepo, tokens *repository.VerificationTokenRepo) *AdminHandler {
	if ents == nil || passwords == nil || tokens == nil {
		panic("nil repository passed to NewAdminHandler")
	}
	return &AdminHandler{Entitlements: ents, Passwords: passwords, Tokens: tokens}
}

// Grant handles POST /v1/admin/grants. It issues an entitlement directly,
// replacing any grant the user already holds.
func (h *AdminHandler) Grant(c echo.Context) error {
	var body struct {
		UserID uint64 `json:"user_id"`
		Hours  int    `json:"hours"`
	}
	if err := c.Bind(&body); err != nil || body.UserID == 0 || body.Hours <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and positive hours required"})
	}
	ctx := c.Request().Context()
	ent, err := h.Entitlements.Grant(ctx, body.UserID, model.SourceAdmin,
		time.Duration(body.Hours)*time.Hour)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "grant failed"})
	}

	_ = queue.PublishEntitlementGranted(ctx, queue.EntitlementGrantedEvent{
		UserID:    ent.UserID,
		Source:    ent.Source,
		GrantedAt: ent.GrantedAt.Format(time.RFC3339),
		ExpiresAt: ent.ExpiresAt.Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"user_id":    ent.UserID,
		"expires_at": ent.ExpiresAt.Format(time.RFC3339),
	})
}

// Revoke handles DELETE /v1/admin/grants/:user_id. Revocation invalidates
// access immediately, regardless of remaining time.
func (h *AdminHandler) Revoke(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil || userID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	if err := h.Entitlements.Revoke(c.Request().Context(), userID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// CreatePassword handles POST /v1/admin/batch-passwords.
func (h *AdminHandler) CreatePassword(c echo.Context) error {
	var body struct {
		BatchID    uint64 `json:"batch_id"`
		Password   string `json:"password"`
		ValidHours int    `json:"valid_hours"`
		MaxUses    int    `json:"max_uses"`
		TTLHours   int    `json:"ttl_hours"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	body.Password = strings.TrimSpace(body.Password)
	if body.BatchID == 0 || body.Password == "" || body.ValidHours <= 0 || body.MaxUses <= 0 || body.TTLHours <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "batch_id, password, valid_hours, max_uses and ttl_hours required"})
	}
	pw, err := h.Passwords.Create(c.Request().Context(), body.BatchID, body.Password,
		body.ValidHours, body.MaxUses, time.Duration(body.TTLHours)*time.Hour)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":         pw.ID,
		"batch_id":   pw.BatchID,
		"max_uses":   pw.MaxUses,
		"expires_at": pw.ExpiresAt.Format(time.RFC3339),
	})
}

// ListPasswords handles GET /v1/admin/batch-passwords.
func (h *AdminHandler) ListPasswords(c echo.Context) error {
	items, err := h.Passwords.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	out := make([]echo.Map, 0, len(items))
	for _, p := range items {
		out = append(out, echo.Map{
			"id":           p.ID,
			"batch_id":     p.BatchID,
			"password":     p.Password,
			"valid_hours":  p.ValidHours,
			"max_uses":     p.MaxUses,
			"current_uses": p.CurrentUses,
			"is_active":    p.IsActive,
			"expires_at":   p.ExpiresAt.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// DeactivatePassword handles PUT /v1/admin/batch-passwords/:id/deactivate.
// Unlike deletion it keeps the row and its enrollment history; the
// password just stops being redeemable.
func (h *AdminHandler) DeactivatePassword(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid password id"})
	}
	if err := h.Passwords.Deactivate(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrPasswordInvalid) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "deactivate failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// DeletePassword handles DELETE /v1/admin/batch-passwords/:id.
func (h *AdminHandler) DeletePassword(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid password id"})
	}
	if err := h.Passwords.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrPasswordInvalid) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListTokens handles GET /v1/admin/verification-tokens. With a user_id
// query parameter it returns that user's full issuance history; without
// one it returns the newest tokens across all users. The ledger is
// append-only either way.
func (h *AdminHandler) ListTokens(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	ctx := c.Request().Context()

	var (
		items []model.VerificationToken
		err   error
	)
	if raw := c.QueryParam("user_id"); raw != "" {
		userID, perr := strconv.ParseUint(raw, 10, 64)
		if perr != nil || userID == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user_id"})
		}
		items, err = h.Tokens.ListByUser(ctx, userID, limit)
	} else {
		items, err = h.Tokens.ListRecent(ctx, limit)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	out := make([]echo.Map, 0, len(items))
	for _, t := range items {
		m := echo.Map{
			"id":         t.ID,
			"user_id":    t.UserID,
			"used":       t.Used,
			"status":     t.Status,
			"created_at": t.CreatedAt.Format(time.RFC3339),
			"expires_at": t.ExpiresAt.Format(time.RFC3339),
		}
		if t.VerifiedAt != nil {
			m["verified_at"] = t.VerifiedAt.Format(time.RFC3339)
		}
		out = append(out, m)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}
