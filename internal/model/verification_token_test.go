package model

import (
	"testing"
	"time"
)

func TestVerificationTokenRedeemable(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	fresh := VerificationToken{ExpiresAt: now.Add(15 * time.Minute)}
	if !fresh.Redeemable(now) {
		t.Error("unused token within its window must be redeemable")
	}

	used := VerificationToken{Used: true, ExpiresAt: now.Add(15 * time.Minute)}
	if used.Redeemable(now) {
		t.Error("used token must never be redeemable again")
	}

	// Issued at T0 with a 15 minute window: redemption at T0+16m fails,
	// redemption at T0+5m succeeds.
	issued := VerificationToken{ExpiresAt: now.Add(15 * time.Minute)}
	if issued.Redeemable(now.Add(16 * time.Minute)) {
		t.Error("token must be expired one minute past its window")
	}
	if !issued.Redeemable(now.Add(5 * time.Minute)) {
		t.Error("token must be redeemable mid-window")
	}

	// Expiry is exact.
	if issued.Redeemable(now.Add(15 * time.Minute)) {
		t.Error("token expiring exactly now must not be redeemable")
	}
}

func TestVerificationTokenCodeRedeemable(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	code := "042317"
	codeExp := now.Add(30 * time.Minute)

	tok := VerificationToken{Code: &code, CodeExpiresAt: &codeExp, ExpiresAt: now.Add(15 * time.Minute)}
	if !tok.CodeRedeemable(now) {
		t.Error("code within its own window must be redeemable")
	}
	// The code window outlives the token window.
	if !tok.CodeRedeemable(now.Add(20 * time.Minute)) {
		t.Error("code validity is bounded by code_expires_at, not expires_at")
	}
	if tok.CodeRedeemable(now.Add(31 * time.Minute)) {
		t.Error("code past its window must not be redeemable")
	}

	noCode := VerificationToken{ExpiresAt: now.Add(15 * time.Minute)}
	if noCode.CodeRedeemable(now) {
		t.Error("token without a code is never code-redeemable")
	}

	usedTok := VerificationToken{Used: true, Code: &code, CodeExpiresAt: &codeExp}
	if usedTok.CodeRedeemable(now) {
		t.Error("used token is never code-redeemable")
	}
}
