package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/classgate/access/internal/model"
)

// VerificationTokenRepo provides data access to the verification_tokens
// table. Tokens are issued when a user starts the external verification
// flow, redeemed at most once by the callback (or by manual code entry),
// and never deleted so the ledger stays auditable. All expiry comparisons
// happen in UTC against the database clock.
type VerificationTokenRepo struct {
	db *sql.DB
}

// NewVerificationTokenRepo returns a new VerificationTokenRepo bound to the
// provided database.
func NewVerificationTokenRepo(db *sql.DB) *VerificationTokenRepo {
	return &VerificationTokenRepo{db: db}
}

// randomToken generates a random hexadecimal string from n bytes of
// cryptographically secure random data. For the 64 character secrets
// stored in the token column, specify 32 bytes.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// randomCode generates a 6-digit numeric code for manual entry. Leading
// zeros are preserved so every code is exactly six characters.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Issue creates a fresh PENDING token for the user with a new unguessable
// secret and a short numeric code. The token expires after ttl; the code
// after codeTTL. The returned record carries the generated values so the
// handler can build the redirect URL.
func (r *VerificationTokenRepo) Issue(ctx context.Context, userID uint64, ttl, codeTTL time.Duration) (model.VerificationToken, error) {
	secret, err := randomToken(32)
	if err != nil {
		return model.VerificationToken{}, err
	}
	code, err := randomCode()
	if err != nil {
		return model.VerificationToken{}, err
	}
	now := time.Now().UTC().Truncate(time.Second)
	rec := model.VerificationToken{
		UserID:        userID,
		Token:         secret,
		Code:          &code,
		Status:        model.TokenStatusPending,
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
		CodeExpiresAt: ptrTime(now.Add(codeTTL)),
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO verification_tokens (user_id, token, code, used, status, created_at, expires_at, code_expires_at)
		 VALUES (?, ?, ?, 0, ?, ?, ?, ?)`,
		rec.UserID, rec.Token, code, rec.Status, rec.CreatedAt, rec.ExpiresAt, *rec.CodeExpiresAt)
	if err != nil {
		return model.VerificationToken{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.VerificationToken{}, err
	}
	rec.ID = uint64(id)
	return rec, nil
}

// GetByToken looks a token up by its secret. It returns ErrTokenNotFound
// when no row matches; the returned record is not checked for expiry or
// prior use, callers classify those themselves.
func (r *VerificationTokenRepo) GetByToken(ctx context.Context, token string) (model.VerificationToken, error) {
	return r.getWhere(ctx, `token = ?`, token)
}

// GetByCode looks a token up by its manual numeric code. Codes are six
// digits and not globally unique, so the lookup is scoped to the owning
// user; another user's token with the same code is never surfaced. Among
// the caller's own tokens the newest matching row wins.
func (r *VerificationTokenRepo) GetByCode(ctx context.Context, code string, userID uint64) (model.VerificationToken, error) {
	return r.getWhere(ctx, `code = ? AND user_id = ? ORDER BY id DESC`, code, userID)
}

func (r *VerificationTokenRepo) getWhere(ctx context.Context, where string, args ...any) (model.VerificationToken, error) {
	q := `SELECT id, user_id, token, code, used, status, created_at, expires_at, code_expires_at, verified_at
	      FROM verification_tokens WHERE ` + where + ` LIMIT 1`
	var (
		t        model.VerificationToken
		code     sql.NullString
		codeExp  sql.NullTime
		verified sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, q, args...).
		Scan(&t.ID, &t.UserID, &t.Token, &code, &t.Used, &t.Status, &t.CreatedAt, &t.ExpiresAt, &codeExp, &verified)
	if errors.Is(err, sql.ErrNoRows) {
		return model.VerificationToken{}, ErrTokenNotFound
	}
	if err != nil {
		return model.VerificationToken{}, err
	}
	if code.Valid {
		t.Code = &code.String
	}
	if codeExp.Valid {
		t.CodeExpiresAt = &codeExp.Time
	}
	if verified.Valid {
		t.VerifiedAt = &verified.Time
	}
	return t, nil
}

// RedeemTx marks the token used within the provided transaction. The check
// and the mutation are a single guarded UPDATE, not a read-then-write: the
// WHERE clause requires used = 0 and an unexpired token, so two concurrent
// redemptions of the same token can never both succeed. Zero rows affected
// means another request redeemed the token between the caller's pre-read
// and this statement, which is reported as ErrTokenUsed.
//
// The caller performs the entitlement grant in the same transaction; a
// token marked used with no resulting grant, or a grant with no token
// marked used, must be impossible.
func (r *VerificationTokenRepo) RedeemTx(ctx context.Context, tx *sql.Tx, token string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE verification_tokens
		 SET used = 1, status = ?, verified_at = UTC_TIMESTAMP()
		 WHERE token = ? AND used = 0 AND expires_at > UTC_TIMESTAMP()`,
		model.TokenStatusVerified, token)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTokenUsed
	}
	return nil
}

// RedeemByCodeTx is the manual-entry variant of RedeemTx, bounded by
// code_expires_at instead of expires_at. It is keyed on the row id from
// the caller's pre-read, never on the code itself: codes can collide
// across users, and a code-keyed UPDATE could burn a second pending row
// that will never receive a grant.
func (r *VerificationTokenRepo) RedeemByCodeTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE verification_tokens
		 SET used = 1, status = ?, verified_at = UTC_TIMESTAMP()
		 WHERE id = ? AND used = 0 AND code_expires_at IS NOT NULL AND code_expires_at > UTC_TIMESTAMP()`,
		model.TokenStatusVerified, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTokenUsed
	}
	return nil
}

// ListByUser returns the user's tokens newest first, for admin visibility.
// Tokens are never deleted, so this is the full issuance history.
func (r *VerificationTokenRepo) ListByUser(ctx context.Context, userID uint64, limit int) ([]model.VerificationToken, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, token, code, used, status, created_at, expires_at, code_expires_at, verified_at
		 FROM verification_tokens WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		userID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return scanTokenRows(rows)
}

// ListRecent returns the newest tokens across all users, so the ledger can
// be browsed without knowing a user id up front.
func (r *VerificationTokenRepo) ListRecent(ctx context.Context, limit int) ([]model.VerificationToken, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, token, code, used, status, created_at, expires_at, code_expires_at, verified_at
		 FROM verification_tokens ORDER BY id DESC LIMIT ?`,
		clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return scanTokenRows(rows)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}

func scanTokenRows(rows *sql.Rows) ([]model.VerificationToken, error) {
	defer rows.Close()
	var out []model.VerificationToken
	for rows.Next() {
		var (
			t        model.VerificationToken
			code     sql.NullString
			codeExp  sql.NullTime
			verified sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Token, &code, &t.Used, &t.Status, &t.CreatedAt, &t.ExpiresAt, &codeExp, &verified); err != nil {
			return nil, err
		}
		if code.Valid {
			t.Code = &code.String
		}
		if codeExp.Valid {
			t.CodeExpiresAt = &codeExp.Time
		}
		if verified.Valid {
			t.VerifiedAt = &verified.Time
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func ptrTime(t time.Time) *time.Time { return &t }
