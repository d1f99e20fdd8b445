package model

import "time"

// Grant sources recorded on an entitlement row. They identify which
// redemption path produced the grant and are carried into the
// entitlement.granted event for downstream consumers.
const (
	SourceToken    = "token"    // external verification token redemption
	SourcePassword = "password" // batch access password redemption
	SourceAdmin    = "admin"    // direct administrative grant
)

// Entitlement represents a user-scoped, time-boxed premium access grant as
// stored in the `entitlements` table. The table is keyed on UserID, so a
// user holds at most one row at any time; issuing a new grant replaces the
// previous one, it never stacks or extends.
//
// Fields:
//
//	UserID    – owner of the grant (primary key).
//	Source    – which path issued the grant (token/password/admin).
//	GrantedAt – when the grant was issued.
//	ExpiresAt – when the grant lapses; always after GrantedAt.
type Entitlement struct {
	UserID    uint64    // entitlements.user_id
	Source    string    // entitlements.source
	GrantedAt time.Time // entitlements.granted_at
	ExpiresAt time.Time // entitlements.expires_at
}

// Active reports whether the grant is still valid at the given instant.
// Validity is always recomputed from ExpiresAt; there is no cached flag to
// trust and no grace period past expiry.
func (e Entitlement) Active(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}
