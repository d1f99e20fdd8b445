package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/classgate/access/internal/config"
	"github.com/classgate/access/internal/model"
	"github.com/classgate/access/internal/queue"
	"github.com/classgate/access/internal/repository"
)

// VerificationHandler implements the token-based redemption path. A user
// starts a flow and is handed a token embedded in a redirect URL; the
// external verification service later echoes the token back through the
// unauthenticated callback, which redeems it and issues the grant. Because
// the callback lands in a separate browser tab, the originating client
// discovers the grant by polling the access-status endpoint.
type VerificationHandler struct {
	Cfg          config.Config
	Tokens       *repository.VerificationTokenRepo
	Entitlements *repository.EntitlementRepo
}

// NewVerificationHandler constructs a VerificationHandler. All
// dependencies must be non-nil.
func NewVerificationHandler(cfg config.Config, tokens *repository.VerificationTokenRepo, ents *repository.EntitlementRepo) *VerificationHandler {
	if tokens == nil || ents == nil {
		panic("nil repository passed to NewVerificationHandler")
	}
	return &VerificationHandler{Cfg: cfg, Tokens: tokens, Entitlements: ents}
}

// Start handles POST /v1/verification/start. It issues a fresh single-use
// token for the authenticated user and returns the redirect URL the client
// should open in a new tab, plus the short numeric code for manual entry.
func (h *VerificationHandler) Start(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	tok, err := h.Tokens.Issue(ctx,
		userID,
		time.Duration(h.Cfg.VerifyTokenTTLMin)*time.Minute,
		time.Duration(h.Cfg.VerifyCodeTTLMin)*time.Minute)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue token"})
	}
	redirect := strings.TrimRight(h.Cfg.VerifyRedirectBase, "/") + "?token=" + url.QueryEscape(tok.Token)
	// The redemption lands out-of-band, so the client is told how to
	// poll access-status while it waits: every poll_interval_seconds,
	// giving up after poll_max_wait_seconds.
	return c.JSON(http.StatusCreated, echo.Map{
		"token":                 tok.Token,
		"code":                  tok.Code,
		"redirect_url":          redirect,
		"expires_at":            tok.ExpiresAt.Format(time.RFC3339),
		"poll_interval_seconds": int(h.Cfg.PollInterval / time.Second),
		"poll_max_wait_seconds": int(h.Cfg.PollMaxWait / time.Second),
	})
}

// Callback handles GET /v1/verify?token=..., the unauthenticated callback
// from the external verification service. Every field is untrusted and
// validated before any state mutation. On success the token is marked used
// and the entitlement issued in one transaction; a token marked used with
// no grant, or a grant with no token marked used, cannot be produced.
// The response is a small human-readable page, since the viewer is the
// external service's browser tab, not the polling client.
func (h *VerificationHandler) Callback(c echo.Context) error {
	raw := strings.TrimSpace(c.QueryParam("token"))
	if raw == "" {
		return failurePage(c, http.StatusBadRequest, "missing_token")
	}
	ctx := c.Request().Context()

	// Pre-read for failure classification. The guarded UPDATE below is
	// what actually decides a race.
	tok, err := h.Tokens.GetByToken(ctx, raw)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return failurePage(c, http.StatusNotFound, "invalid_token")
		}
		return failurePage(c, http.StatusInternalServerError, "server_error")
	}
	if !tok.Redeemable(time.Now().UTC()) {
		return failurePage(c, http.StatusConflict, "access_failed")
	}

	tx, err := h.Entitlements.DB().BeginTx(ctx, nil)
	if err != nil {
		return failurePage(c, http.StatusInternalServerError, "server_error")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := h.Tokens.RedeemTx(ctx, tx, raw); err != nil {
		if errors.Is(err, repository.ErrTokenUsed) {
			return failurePage(c, http.StatusConflict, "access_failed")
		}
		return failurePage(c, http.StatusInternalServerError, "server_error")
	}
	ent, err := h.Entitlements.GrantTx(ctx, tx, tok.UserID, model.SourceToken,
		time.Duration(h.Cfg.GrantHours)*time.Hour)
	if err != nil {
		return failurePage(c, http.StatusInternalServerError, "server_error")
	}
	if err := tx.Commit(); err != nil {
		return failurePage(c, http.StatusInternalServerError, "server_error")
	}
	committed = true

	// Best-effort event; the grant is already durable.
	_ = queue.PublishEntitlementGranted(ctx, queue.EntitlementGrantedEvent{
		UserID:    ent.UserID,
		Source:    ent.Source,
		GrantedAt: ent.GrantedAt.Format(time.RFC3339),
		ExpiresAt: ent.ExpiresAt.Format(time.RFC3339),
	})

	return successPage(c, ent.ExpiresAt)
}

// VerifyCode handles POST /v1/verification/code. It is the manual
// fallback: the user types the short numeric code shown when the flow
// started instead of completing the external redirect. The code must
// belong to the calling user.
func (h *VerificationHandler) VerifyCode(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Code string `json:"code"`
	}
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.Code) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code required"})
	}
	code := strings.TrimSpace(body.Code)
	ctx := c.Request().Context()

	// The lookup is scoped to the caller, so a colliding code issued to
	// another user reads as not found.
	tok, err := h.Tokens.GetByCode(ctx, code, userID)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "invalid_code"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server_error"})
	}
	if tok.Used {
		return c.JSON(http.StatusConflict, echo.Map{"error": "already_used"})
	}
	if !tok.CodeRedeemable(time.Now().UTC()) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "expired"})
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
	if err := h.Tokens.RedeemByCodeTx(ctx, tx, tok.ID); err != nil {
		if errors.Is(err, repository.ErrTokenUsed) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "already_used"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server_error"})
	}
	ent, err := h.Entitlements.GrantTx(ctx, tx, tok.UserID, model.SourceToken,
		time.Duration(h.Cfg.GrantHours)*time.Hour)
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
		GrantedAt: ent.GrantedAt.Format(time.RFC3339),
		ExpiresAt: ent.ExpiresAt.Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, echo.Map{
		"granted":    true,
		"expires_at": ent.ExpiresAt.Format(time.RFC3339),
	})
}

// successPage renders the human-readable confirmation shown in the
// external service's tab after a successful redemption.
func successPage(c echo.Context, expiresAt time.Time) error {
	html := `<!DOCTYPE html>
<html><head><title>Access granted</title></head>
<body style="font-family:sans-serif;text-align:center;padding-top:4em">
<h1>&#10003; Verification complete</h1>
<p>Your premium access is active until ` + expiresAt.Format("2006-01-02 15:04 MST") + `.</p>
<p>You can close this tab and return to the app.</p>
</body></html>`
	return c.HTML(http.StatusOK, html)
}

// failurePage renders an error page with a stable machine-readable code
// (missing_token, invalid_token, access_failed, server_error).
func failurePage(c echo.Context, status int, code string) error {
	html := `<!DOCTYPE html>
<html><head><title>Verification failed</title></head>
<body style="font-family:sans-serif;text-align:center;padding-top:4em">
<h1>Verification failed</h1>
<p>Reason: <code>` + code + `</code></p>
<p>Please return to the app and start a new verification.</p>
</body></html>`
	return c.HTML(status, html)
}
