package model

import "time"

// BatchAccessPassword is a shared, multi-use secret scoped to one content
// batch. Unlike verification tokens it is not tied to a single user: any
// authenticated user who presents the password before it expires or runs
// out of uses receives an entitlement lasting ValidHours. Each successful
// redemption increments CurrentUses by exactly one; the increment is a
// guarded single-statement update so concurrent redemptions cannot skip
// the cap.
//
// Fields:
//
//	ID          – primary key identifier.
//	BatchID     – content batch the password is scoped to.
//	Password    – the shared secret string.
//	ValidHours  – grant duration handed to the issuer on redemption.
//	MaxUses     – redemption cap.
//	CurrentUses – redemptions so far; never exceeds MaxUses.
//	IsActive    – administrative kill switch.
//	CreatedAt   – when the password was created.
//	ExpiresAt   – the password's own validity window, independent of any
//	              grant it produces.
type BatchAccessPassword struct {
	ID          uint64    // batch_access_passwords.id
	BatchID     uint64    // batch_access_passwords.batch_id
	Password    string    // batch_access_passwords.password
	ValidHours  int       // batch_access_passwords.valid_hours
	MaxUses     int       // batch_access_passwords.max_uses
	CurrentUses int       // batch_access_passwords.current_uses
	IsActive    bool      // batch_access_passwords.is_active
	CreatedAt   time.Time // batch_access_passwords.created_at
	ExpiresAt   time.Time // batch_access_passwords.expires_at
}

// Redeemable reports whether the password may be redeemed at the given
// instant: active, within its validity window and under its usage cap.
func (p BatchAccessPassword) Redeemable(now time.Time) bool {
	return p.IsActive && now.Before(p.ExpiresAt) && p.CurrentUses < p.MaxUses
}

// Exhausted reports whether the usage cap has been reached.
func (p BatchAccessPassword) Exhausted() bool {
	return p.CurrentUses >= p.MaxUses
}

// BatchEnrollment links a user to the batch whose password they redeemed.
// One row is written per successful redemption; together with the usage
// counter it forms the audit trail for shared passwords.
type BatchEnrollment struct {
	ID         uint64    // batch_enrollments.id
	UserID     uint64    // batch_enrollments.user_id
	PasswordID uint64    // batch_enrollments.password_id
	BatchID    uint64    // batch_enrollments.batch_id
	CreatedAt  time.Time // batch_enrollments.created_at
}
