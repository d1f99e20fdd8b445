package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/classgate/access/internal/model"
)

// BatchPasswordRepo provides data access to the batch_access_passwords and
// batch_enrollments tables. Passwords are created by administrators and
// consumed by students; consumption is capped by max_uses and the cap is
// enforced with a guarded increment so simultaneous redemptions for the
// last slot produce exactly one success.
type BatchPasswordRepo struct {
	db *sql.DB
}

// NewBatchPasswordRepo returns a new BatchPasswordRepo bound to the
// provided database.
func NewBatchPasswordRepo(db *sql.DB) *BatchPasswordRepo { return &BatchPasswordRepo{db: db} }

// Create inserts a new batch access password. This is an administrative
// action with no concurrency concerns; ttl bounds the password's own
// validity window, independent of the grants it will produce.
func (r *BatchPasswordRepo) Create(ctx context.Context, batchID uint64, password string, validHours, maxUses int, ttl time.Duration) (model.BatchAccessPassword, error) {
	now := time.Now().UTC().Truncate(time.Second)
	rec := model.BatchAccessPassword{
		BatchID:    batchID,
		Password:   password,
		ValidHours: validHours,
		MaxUses:    maxUses,
		IsActive:   true,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO batch_access_passwords (batch_id, password, valid_hours, max_uses, current_uses, is_active, created_at, expires_at)
		 VALUES (?, ?, ?, ?, 0, 1, ?, ?)`,
		rec.BatchID, rec.Password, rec.ValidHours, rec.MaxUses, rec.CreatedAt, rec.ExpiresAt)
	if err != nil {
		return model.BatchAccessPassword{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.BatchAccessPassword{}, err
	}
	rec.ID = uint64(id)
	return rec, nil
}

// GetActiveByPassword finds an active password matching the presented
// string. It is a classification read only: the caller distinguishes
// expired and exhausted matches via the returned record, and the actual
// slot is taken later by ConsumeTx. Returns ErrPasswordInvalid when no
// active password matches at all.
func (r *BatchPasswordRepo) GetActiveByPassword(ctx context.Context, password string) (model.BatchAccessPassword, error) {
	var p model.BatchAccessPassword
	err := r.db.QueryRowContext(ctx,
		`SELECT id, batch_id, password, valid_hours, max_uses, current_uses, is_active, created_at, expires_at
		 FROM batch_access_passwords WHERE password = ? AND is_active = 1 ORDER BY id DESC LIMIT 1`,
		password).Scan(&p.ID, &p.BatchID, &p.Password, &p.ValidHours, &p.MaxUses, &p.CurrentUses, &p.IsActive, &p.CreatedAt, &p.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BatchAccessPassword{}, ErrPasswordInvalid
	}
	if err != nil {
		return model.BatchAccessPassword{}, err
	}
	return p, nil
}

// ConsumeTx takes one redemption slot within the provided transaction.
// The cap check and the increment are a single guarded UPDATE: the WHERE
// clause re-verifies active, unexpired and under-cap state, so two
// redemptions racing for the last slot can never both succeed. Zero rows
// affected after a passing pre-read means a concurrent redemption claimed
// the slot first, reported as ErrPasswordExhausted.
func (r *BatchPasswordRepo) ConsumeTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE batch_access_passwords
		 SET current_uses = current_uses + 1
		 WHERE id = ? AND is_active = 1 AND current_uses < max_uses AND expires_at > UTC_TIMESTAMP()`,
		id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPasswordExhausted
	}
	return nil
}

// CreateEnrollmentTx records the audit row linking the user to the batch
// whose password they redeemed. Written in the same transaction as the
// slot consumption and the grant.
func (r *BatchPasswordRepo) CreateEnrollmentTx(ctx context.Context, tx *sql.Tx, userID, passwordID, batchID uint64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO batch_enrollments (user_id, password_id, batch_id) VALUES (?, ?, ?)`,
		userID, passwordID, batchID)
	return err
}

// List returns all passwords newest first, for admin visibility.
func (r *BatchPasswordRepo) List(ctx context.Context) ([]model.BatchAccessPassword, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, batch_id, password, valid_hours, max_uses, current_uses, is_active, created_at, expires_at
		 FROM batch_access_passwords ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.BatchAccessPassword
	for rows.Next() {
		var p model.BatchAccessPassword
		if err := rows.Scan(&p.ID, &p.BatchID, &p.Password, &p.ValidHours, &p.MaxUses, &p.CurrentUses, &p.IsActive, &p.CreatedAt, &p.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Deactivate flips the administrative kill switch, making the password
// permanently unredeemable without deleting its audit trail.
func (r *BatchPasswordRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE batch_access_passwords SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPasswordInvalid
	}
	return nil
}

// Delete removes the password outright. Enrollments referencing it are
// kept; they record history, not current access.
func (r *BatchPasswordRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM batch_access_passwords WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPasswordInvalid
	}
	return nil
}
