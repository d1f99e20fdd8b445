// Package access implements the read-only access decision. Given the
// caller's identity and the classification of the requested content, it
// composes the administrative override, the current entitlement and the
// basic-mode fallback into a single allow/deny result. The package is pure
// and store-agnostic: handlers load state and pass it in, so the decision
// is trivially safe to evaluate at client polling frequency.
package access

import "time"

// Content classifications. Anything that is not explicitly basic is
// treated as premium.
const (
	ClassificationBasic   = "basic"
	ClassificationPremium = "premium"
)

// Decision reasons, returned verbatim to polling clients.
const (
	ReasonAdmin             = "admin"
	ReasonEntitlement       = "entitlement"
	ReasonBasic             = "basic"
	ReasonNeedsVerification = "needs_verification"
)

// Subject captures everything about the caller the decision needs.
// Entitlement is the user's current grant row if one exists, regardless of
// expiry; validity is recomputed here on every call.
type Subject struct {
	IsAdmin        bool
	BasicMode      bool
	HasEntitlement bool
	ExpiresAt      time.Time
}

// Decision is the allow/deny result handed to clients.
// RemainingSeconds is nil for unbounded access (admin, basic) and for
// denials; for entitlement-based access it counts down to expiry.
type Decision struct {
	Allowed          bool   `json:"allowed"`
	RemainingSeconds *int64 `json:"remaining_seconds"`
	Reason           string `json:"reason"`
}

// Remaining evaluates a stored expiry against now. It returns the time
// left and whether the expiry is still in the future. Access lapses the
// instant now reaches expiresAt; there is no grace period.
func Remaining(now, expiresAt time.Time) (time.Duration, bool) {
	d := expiresAt.Sub(now)
	if d <= 0 {
		return 0, false
	}
	return d, true
}

// Decide evaluates the caller's access, first match wins:
//
//  1. administrators are always allowed, unlimited;
//  2. an unexpired entitlement allows with the remaining time;
//  3. basic-mode users may view basic content, unbounded;
//  4. everything else is denied pending verification.
//
// Decide never mutates state and never blocks.
func Decide(now time.Time, sub Subject, classification string) Decision {
	if sub.IsAdmin {
		return Decision{Allowed: true, Reason: ReasonAdmin}
	}
	if sub.HasEntitlement {
		if left, ok := Remaining(now, sub.ExpiresAt); ok {
			secs := int64(left / time.Second)
			return Decision{Allowed: true, RemainingSeconds: &secs, Reason: ReasonEntitlement}
		}
	}
	if sub.BasicMode && classification == ClassificationBasic {
		return Decision{Allowed: true, Reason: ReasonBasic}
	}
	return Decision{Allowed: false, Reason: ReasonNeedsVerification}
}
