package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/classgate/access/internal/model"
	"github.com/classgate/access/internal/queue"
	"github.com/classgate/access/internal/repository"
)

// PasswordHandler implements the shared batch-password redemption path.
type PasswordHandler struct {
	Passwords    *repository.BatchPasswordRepo
	Entitlements *repository.EntitlementRepo
}

// NewPasswordHandler constructs a PasswordHandler. All dependencies must
// be non-nil.
func NewPasswordHandler(passwords *repository.BatchPasswordRepo, ents *repository.EntitlementRepo) *PasswordHandler {
	if passwords == nil || ents == nil {
		panic("nil repository passed to NewPasswordHandler")
	}
	return &PasswordHandler{Passwords: passwords, Entitlements: ents}
}

// Redeem handles POST /v1/batch-passwords/redeem. It consumes one slot of
// a shared password and issues the caller an entitlement lasting the
// password's valid_hours. The slot consumption, the enrollment audit row
// and the grant are one transaction; when two users race for the last
// slot, exactly one receives a grant and the other sees "exhausted".
//
// Note: the resulting entitlement is global, not batch-scoped, even though
// the password is. This mirrors the platform's single entitlement check.
func (h *PasswordHandler) Redeem(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.Password) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password required"})
	}
	ctx := c.Request().Context()

	pw, err := h.Passwords.GetActiveByPassword(ctx, strings.TrimSpace(body.Password))
	if err != nil {
		if errors.Is(err, repository.ErrPasswordInvalid) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "invalid"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server_error"})
	}
	now := time.Now().UTC()
	if !now.Before(pw.ExpiresAt) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "expired"})
	}
	if pw.Exhausted() {
		return c.JSON(http.StatusConflict, echo.Map{"error": "exhausted"})
	}

	tx, err := h.Entitlements.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server_error"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	// The guarded increment decides races; the pre-read above only shaped
	// the error message.
	if err := h.Passwords.ConsumeTx(ctx, tx, pw.ID); err != nil {
		if errors.Is(err, repository.ErrPasswordExhausted) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "exhausted"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server_error"})
	}
	if err := h.Passwords.CreateEnrollmentTx(ctx, tx, userID, pw.ID, pw.BatchID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server_error"})
	}
	ent, err := h.Entitlements.GrantTx(ctx, tx, userID, model.SourcePassword,
		time.Duration(pw.ValidHours)*time.Hour)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server_error"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server_error"})
	}
	committed = true

	_ = queue.PublishEntitlementGranted(ctx, queue.EntitlementGrantedEvent{
		UserID:    ent.UserID,
		Source:    ent.Source,
		BatchID:   pw.BatchID,
		GrantedAt: ent.GrantedAt.Format(time.RFC3339),
		ExpiresAt: ent.ExpiresAt.Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, echo.Map{
		"granted":    true,
		"batch_id":   pw.BatchID,
		"expires_at": ent.ExpiresAt.Format(time.RFC3339),
	})
}
