package model

import "time"

// Verification token statuses. A token starts PENDING and moves to
// VERIFIED exactly once, when redeemed.
const (
	TokenStatusPending  = "PENDING"
	TokenStatusVerified = "VERIFIED"
)

// VerificationToken is a single-use secret issued when a user starts the
// external verification flow. The external service echoes the token back
// through an unauthenticated callback; redemption marks the token used and
// issues an entitlement in the same transaction. Rows are never deleted so
// administrators retain an audit trail.
//
// Fields:
//
//	ID            – primary key identifier.
//	UserID        – user who started the flow and will receive the grant.
//	Token         – opaque single-use secret embedded in the redirect URL.
//	Code          – optional short numeric code for manual entry.
//	Used          – set exactly once on redemption; no further redemption
//	                may succeed afterwards.
//	Status        – PENDING until redeemed, then VERIFIED.
//	CreatedAt     – when the flow was started.
//	ExpiresAt     – token validity bound.
//	CodeExpiresAt – manual code validity bound (nullable).
//	VerifiedAt    – when the token was redeemed (nullable).
type VerificationToken struct {
	ID            uint64     // verification_tokens.id
	UserID        uint64     // verification_tokens.user_id
	Token         string     // verification_tokens.token
	Code          *string    // verification_tokens.code (nullable)
	Used          bool       // verification_tokens.used
	Status        string     // verification_tokens.status
	CreatedAt     time.Time  // verification_tokens.created_at
	ExpiresAt     time.Time  // verification_tokens.expires_at
	CodeExpiresAt *time.Time // verification_tokens.code_expires_at (nullable)
	VerifiedAt    *time.Time // verification_tokens.verified_at (nullable)
}

// Redeemable reports whether the token may still be redeemed at the given
// instant: it must be unused and not yet expired.
func (t VerificationToken) Redeemable(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}

// CodeRedeemable reports whether the manual numeric code may still be
// entered at the given instant. Tokens issued without a code are never
// code-redeemable.
func (t VerificationToken) CodeRedeemable(now time.Time) bool {
	if t.Used || t.Code == nil || t.CodeExpiresAt == nil {
		return false
	}
	return now.Before(*t.CodeExpiresAt)
}
