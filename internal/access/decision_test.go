package access

import (
	"testing"
	"time"
)

func TestRemaining(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if _, ok := Remaining(now, now.Add(time.Hour)); !ok {
		t.Error("future expiry should be valid")
	}
	if _, ok := Remaining(now, now); ok {
		t.Error("expiry exactly at now must be invalid, no grace period")
	}
	if _, ok := Remaining(now, now.Add(-time.Second)); ok {
		t.Error("past expiry must be invalid")
	}
	if left, _ := Remaining(now, now.Add(90*time.Second)); left != 90*time.Second {
		t.Errorf("expected 90s remaining, got %s", left)
	}
}

func TestDecideAdminOverride(t *testing.T) {
	now := time.Now().UTC()
	// Admin with no entitlement row at all is still allowed, unlimited.
	d := Decide(now, Subject{IsAdmin: true}, ClassificationPremium)
	if !d.Allowed {
		t.Fatal("admin must be allowed")
	}
	if d.Reason != ReasonAdmin {
		t.Errorf("expected reason %q, got %q", ReasonAdmin, d.Reason)
	}
	if d.RemainingSeconds != nil {
		t.Error("admin access should be unbounded")
	}
}

func TestDecideActiveEntitlement(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sub := Subject{HasEntitlement: true, ExpiresAt: now.Add(2 * time.Hour)}

	d := Decide(now, sub, ClassificationPremium)
	if !d.Allowed {
		t.Fatal("active entitlement must allow")
	}
	if d.Reason != ReasonEntitlement {
		t.Errorf("expected reason %q, got %q", ReasonEntitlement, d.Reason)
	}
	if d.RemainingSeconds == nil || *d.RemainingSeconds != 7200 {
		t.Errorf("expected 7200 remaining seconds, got %v", d.RemainingSeconds)
	}
}

func TestDecideExpiryIsExact(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sub := Subject{HasEntitlement: true, ExpiresAt: now}

	// The instant now reaches expires_at the decision flips to deny.
	d := Decide(now, sub, ClassificationPremium)
	if d.Allowed {
		t.Fatal("entitlement expiring exactly now must deny")
	}
	if d.Reason != ReasonNeedsVerification {
		t.Errorf("expected reason %q, got %q", ReasonNeedsVerification, d.Reason)
	}

	// One second earlier it is still valid.
	d = Decide(now.Add(-time.Second), sub, ClassificationPremium)
	if !d.Allowed {
		t.Fatal("entitlement must be valid right up to expiry")
	}
	if d.RemainingSeconds == nil || *d.RemainingSeconds != 1 {
		t.Errorf("expected 1 remaining second, got %v", d.RemainingSeconds)
	}
}

func TestDecideBasicMode(t *testing.T) {
	now := time.Now().UTC()

	cases := []struct {
		name           string
		sub            Subject
		classification string
		allowed        bool
		reason         string
	}{
		{"basic user, basic content", Subject{BasicMode: true}, ClassificationBasic, true, ReasonBasic},
		{"basic user, premium content", Subject{BasicMode: true}, ClassificationPremium, false, ReasonNeedsVerification},
		{"non-basic user, basic content", Subject{}, ClassificationBasic, false, ReasonNeedsVerification},
		{"basic user, expired entitlement, premium", Subject{BasicMode: true, HasEntitlement: true, ExpiresAt: now.Add(-time.Hour)}, ClassificationPremium, false, ReasonNeedsVerification},
		{"basic user, expired entitlement, basic", Subject{BasicMode: true, HasEntitlement: true, ExpiresAt: now.Add(-time.Hour)}, ClassificationBasic, true, ReasonBasic},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Decide(now, tc.sub, tc.classification)
			if d.Allowed != tc.allowed {
				t.Errorf("allowed = %v, want %v", d.Allowed, tc.allowed)
			}
			if d.Reason != tc.reason {
				t.Errorf("reason = %q, want %q", d.Reason, tc.reason)
			}
			if d.Allowed && d.RemainingSeconds != nil {
				t.Error("basic access should be unbounded")
			}
		})
	}
}

func TestDecideEntitlementBeatsBasicMode(t *testing.T) {
	now := time.Now().UTC()
	sub := Subject{BasicMode: true, HasEntitlement: true, ExpiresAt: now.Add(time.Hour)}

	// An active entitlement wins even when basic mode would also allow,
	// so the client sees its remaining time.
	d := Decide(now, sub, ClassificationBasic)
	if d.Reason != ReasonEntitlement {
		t.Errorf("expected reason %q, got %q", ReasonEntitlement, d.Reason)
	}
	if d.RemainingSeconds == nil {
		t.Error("entitlement access should carry remaining time")
	}
}
