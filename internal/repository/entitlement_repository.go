package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/classgate/access/internal/model"
)

// EntitlementRepo is the single mutation point for the entitlements table.
// Both redemption paths and direct administrative grants go through it, so
// the "at most one active grant per user" invariant is enforced in exactly
// one place. Grants are written as a keyed upsert: a new grant replaces
// the previous row atomically, so a concurrent reader always sees either
// the old grant or the new one, never neither.
type EntitlementRepo struct {
	db *sql.DB
}

// NewEntitlementRepo returns an EntitlementRepo bound to the provided database.
func NewEntitlementRepo(db *sql.DB) *EntitlementRepo { return &EntitlementRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions that
// span the token/password mutation and the grant upsert.
func (r *EntitlementRepo) DB() *sql.DB { return r.db }

const grantUpsert = `INSERT INTO entitlements (user_id, source, granted_at, expires_at)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE source = VALUES(source), granted_at = VALUES(granted_at), expires_at = VALUES(expires_at)`

// GrantTx issues an entitlement to the user within the provided
// transaction, replacing any existing row. Replacement never extends: the
// new expiry is computed from now, not from the previous grant. The caller
// must commit or roll back the transaction; rolling back also undoes the
// token/password mutation performed alongside the grant.
func (r *EntitlementRepo) GrantTx(ctx context.Context, tx *sql.Tx, userID uint64, source string, duration time.Duration) (model.Entitlement, error) {
	now := time.Now().UTC().Truncate(time.Second)
	ent := model.Entitlement{
		UserID:    userID,
		Source:    source,
		GrantedAt: now,
		ExpiresAt: now.Add(duration),
	}
	_, err := tx.ExecContext(ctx, grantUpsert, ent.UserID, ent.Source, ent.GrantedAt, ent.ExpiresAt)
	if err != nil {
		return model.Entitlement{}, err
	}
	return ent, nil
}

// Grant issues an entitlement outside any transaction. Used for direct
// administrative grants, which have no companion mutation to keep atomic.
func (r *EntitlementRepo) Grant(ctx context.Context, userID uint64, source string, duration time.Duration) (model.Entitlement, error) {
	now := time.Now().UTC().Truncate(time.Second)
	ent := model.Entitlement{
		UserID:    userID,
		Source:    source,
		GrantedAt: now,
		ExpiresAt: now.Add(duration),
	}
	_, err := r.db.ExecContext(ctx, grantUpsert, ent.UserID, ent.Source, ent.GrantedAt, ent.ExpiresAt)
	if err != nil {
		return model.Entitlement{}, err
	}
	return ent, nil
}

// GetByUser returns the user's entitlement row regardless of expiry.
// Callers must recompute validity from ExpiresAt on every read; expired
// rows are kept until a sweep or the next grant overwrites them, and the
// decision path never trusts a cached "active" flag. Returns
// ErrNoEntitlement when the user holds no row at all.
func (r *EntitlementRepo) GetByUser(ctx context.Context, userID uint64) (model.Entitlement, error) {
	var ent model.Entitlement
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, source, granted_at, expires_at FROM entitlements WHERE user_id = ? LIMIT 1`,
		userID).Scan(&ent.UserID, &ent.Source, &ent.GrantedAt, &ent.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Entitlement{}, ErrNoEntitlement
	}
	if err != nil {
		return model.Entitlement{}, err
	}
	return ent, nil
}

// Revoke deletes the user's entitlement row outright, invalidating access
// immediately regardless of remaining time. Revoking a user without a row
// is not an error.
func (r *EntitlementRepo) Revoke(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM entitlements WHERE user_id = ?`, userID)
	return err
}

// PurgeExpired removes entitlement rows whose expiry has passed and
// returns how many were deleted. This is an optimization for the
// background sweeper only: the decision path recomputes validity from
// expires_at on every call, so a lagging sweep can never leak access.
func (r *EntitlementRepo) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM entitlements WHERE expires_at <= UTC_TIMESTAMP()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
