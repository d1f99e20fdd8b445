package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/classgate/access/internal/model"
)

func TestRandomTokenShape(t *testing.T) {
	a, err := randomToken(32)
	if err != nil {
		t.Fatalf("randomToken: %v", err)
	}
	if len(a) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(a))
	}
	b, err := randomToken(32)
	if err != nil {
		t.Fatalf("randomToken: %v", err)
	}
	if a == b {
		t.Error("two tokens should never collide")
	}
}

func TestRandomCodeShape(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := randomCode()
		if err != nil {
			t.Fatalf("randomCode: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q is not six digits", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("code %q contains a non-digit", code)
			}
		}
	}
}

var tokenColumns = []string{
	"id", "user_id", "token", "code", "used", "status",
	"created_at", "expires_at", "code_expires_at", "verified_at",
}

// Two users can hold pending tokens carrying the same six-digit code, so
// the redemption statement must target exactly the caller's row by primary
// key. A code-keyed UPDATE would burn the other user's token without ever
// granting them anything.
func TestRedeemByCodeTxKeyedOnRowID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewVerificationTokenRepo(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE verification_tokens SET used = 1, status = \?, verified_at = UTC_TIMESTAMP\(\) WHERE id = \? AND used = 0 AND code_expires_at IS NOT NULL AND code_expires_at > UTC_TIMESTAMP\(\)`).
		WithArgs(model.TokenStatusVerified, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := repo.RedeemByCodeTx(ctx, tx, 7); err != nil {
		t.Fatalf("RedeemByCodeTx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRedeemByCodeTxRaceLost(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewVerificationTokenRepo(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE verification_tokens`).
		WithArgs(model.TokenStatusVerified, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := repo.RedeemByCodeTx(ctx, tx, 7); !errors.Is(err, ErrTokenUsed) {
		t.Fatalf("RedeemByCodeTx on already-claimed row = %v, want ErrTokenUsed", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRedeemTxSingleWinner(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewVerificationTokenRepo(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE verification_tokens SET used = 1, status = \?, verified_at = UTC_TIMESTAMP\(\) WHERE token = \? AND used = 0 AND expires_at > UTC_TIMESTAMP\(\)`).
		WithArgs(model.TokenStatusVerified, "secret").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE verification_tokens`).
		WithArgs(model.TokenStatusVerified, "secret").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := repo.RedeemTx(ctx, tx, "secret"); err != nil {
		t.Fatalf("first redemption: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tx2, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := repo.RedeemTx(ctx, tx2, "secret"); !errors.Is(err, ErrTokenUsed) {
		t.Fatalf("second redemption = %v, want ErrTokenUsed", err)
	}
	if err := tx2.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// Redemption and grant must share one transaction: a token marked used
// with no entitlement row, or the reverse, cannot be observed.
func TestRedeemAndGrantShareTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	tokens := NewVerificationTokenRepo(db)
	ents := NewEntitlementRepo(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE verification_tokens`).
		WithArgs(model.TokenStatusVerified, "secret").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO entitlements \(user_id, source, granted_at, expires_at\) VALUES \(\?, \?, \?, \?\) ON DUPLICATE KEY UPDATE source = VALUES\(source\), granted_at = VALUES\(granted_at\), expires_at = VALUES\(expires_at\)`).
		WithArgs(uint64(3), model.SourceToken, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tokens.RedeemTx(ctx, tx, "secret"); err != nil {
		t.Fatalf("RedeemTx: %v", err)
	}
	ent, err := ents.GrantTx(ctx, tx, 3, model.SourceToken, 24*time.Hour)
	if err != nil {
		t.Fatalf("GrantTx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if ent.UserID != 3 || ent.Source != model.SourceToken {
		t.Errorf("grant = %+v, want user 3 via token", ent)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetByCodeScopedToOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewVerificationTokenRepo(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	mock.ExpectQuery(`FROM verification_tokens WHERE code = \? AND user_id = \? ORDER BY id DESC LIMIT 1`).
		WithArgs("123456", uint64(2)).
		WillReturnRows(sqlmock.NewRows(tokenColumns).
			AddRow(9, 2, "secret", "123456", false, model.TokenStatusPending,
				now, now.Add(15*time.Minute), now.Add(30*time.Minute), nil))

	tok, err := repo.GetByCode(ctx, "123456", 2)
	if err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	if tok.ID != 9 || tok.UserID != 2 {
		t.Errorf("got row id=%d user=%d, want id=9 user=2", tok.ID, tok.UserID)
	}

	// The same code held by a different user must read as not found.
	mock.ExpectQuery(`FROM verification_tokens WHERE code = \? AND user_id = \?`).
		WithArgs("123456", uint64(1)).
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetByCode(ctx, "123456", 1); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("GetByCode for non-owner = %v, want ErrTokenNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestListRecentSpansUsers(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewVerificationTokenRepo(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	mock.ExpectQuery(`FROM verification_tokens ORDER BY id DESC LIMIT \?`).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows(tokenColumns).
			AddRow(12, 5, "t1", nil, true, model.TokenStatusVerified, now, now.Add(15*time.Minute), nil, now).
			AddRow(11, 4, "t2", "654321", false, model.TokenStatusPending, now, now.Add(15*time.Minute), now.Add(30*time.Minute), nil))

	items, err := repo.ListRecent(ctx, 0)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d rows, want 2", len(items))
	}
	if items[0].UserID == items[1].UserID {
		t.Error("expected rows from different users")
	}
	if items[0].VerifiedAt == nil || items[1].VerifiedAt != nil {
		t.Error("nullable verified_at scanned incorrectly")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
