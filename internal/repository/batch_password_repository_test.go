package repository

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

// The use cap lives in the WHERE clause of a single guarded increment, so
// two redemptions racing for the last slot produce exactly one success.
func TestConsumeTxCapGuard(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewBatchPasswordRepo(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE batch_access_passwords SET current_uses = current_uses \+ 1 WHERE id = \? AND is_active = 1 AND current_uses < max_uses AND expires_at > UTC_TIMESTAMP\(\)`).
		WithArgs(uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE batch_access_passwords`).
		WithArgs(uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := repo.ConsumeTx(ctx, tx, 4); err != nil {
		t.Fatalf("winner's ConsumeTx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tx2, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := repo.ConsumeTx(ctx, tx2, 4); !errors.Is(err, ErrPasswordExhausted) {
		t.Fatalf("loser's ConsumeTx = %v, want ErrPasswordExhausted", err)
	}
	if err := tx2.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeactivateKeepsRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewBatchPasswordRepo(db)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE batch_access_passwords SET is_active = 0 WHERE id = \?`).
		WithArgs(uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Deactivate(ctx, 9); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	mock.ExpectExec(`UPDATE batch_access_passwords SET is_active = 0 WHERE id = \?`).
		WithArgs(uint64(999)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Deactivate(ctx, 999); !errors.Is(err, ErrPasswordInvalid) {
		t.Fatalf("Deactivate of unknown id = %v, want ErrPasswordInvalid", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
