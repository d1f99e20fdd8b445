package model

import (
	"testing"
	"time"
)

func TestBatchAccessPasswordRedeemable(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	base := BatchAccessPassword{
		IsActive:  true,
		MaxUses:   5,
		ExpiresAt: now.Add(24 * time.Hour),
	}

	if !base.Redeemable(now) {
		t.Error("active password under cap and within window must be redeemable")
	}

	inactive := base
	inactive.IsActive = false
	if inactive.Redeemable(now) {
		t.Error("deactivated password must not be redeemable")
	}

	expired := base
	if expired.Redeemable(now.Add(24 * time.Hour)) {
		t.Error("password expiring exactly now must not be redeemable")
	}

	full := base
	full.CurrentUses = 5
	if full.Redeemable(now) {
		t.Error("exhausted password must not be redeemable")
	}
	if !full.Exhausted() {
		t.Error("current_uses == max_uses is exhausted")
	}

	lastSlot := base
	lastSlot.CurrentUses = 4
	if !lastSlot.Redeemable(now) {
		t.Error("one remaining slot is still redeemable")
	}
	if lastSlot.Exhausted() {
		t.Error("one remaining slot is not exhausted")
	}
}
