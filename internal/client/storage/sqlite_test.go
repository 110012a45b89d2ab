package storage

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func setupSQLiteMock(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS kv").WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := NewSQLiteStoreFromDB(db)
	if err != nil {
		t.Fatalf("NewSQLiteStoreFromDB: %v", err)
	}
	return s, mock
}

func TestSQLiteStore_Get(t *testing.T) {
	s, mock := setupSQLiteMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM kv WHERE key = ?`)).
		WithArgs("accessToken").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("abc123"))

	got, err := s.Get(context.Background(), "accessToken")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "abc123" {
		t.Errorf("Get = %q; want %q", got, "abc123")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	s, mock := setupSQLiteMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM kv WHERE key = ?`)).
		WithArgs("accessToken").
		WillReturnError(sql.ErrNoRows)

	_, err := s.Get(context.Background(), "accessToken")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get error = %v; want ErrNotFound", err)
	}
}

func TestSQLiteStore_GetError(t *testing.T) {
	s, mock := setupSQLiteMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM kv WHERE key = ?`)).
		WithArgs("accessToken").
		WillReturnError(errors.New("disk I/O error"))

	_, err := s.Get(context.Background(), "accessToken")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected wrapped query error, got %v", err)
	}
}

func TestSQLiteStore_Set(t *testing.T) {
	s, mock := setupSQLiteMock(t)

	mock.ExpectExec("INSERT INTO kv").
		WithArgs("accessToken", "abc123").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := s.Set(context.Background(), "accessToken", "abc123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSQLiteStore_SetError(t *testing.T) {
	s, mock := setupSQLiteMock(t)

	mock.ExpectExec("INSERT INTO kv").
		WithArgs("accessToken", "abc123").
		WillReturnError(errors.New("database is locked"))

	if err := s.Set(context.Background(), "accessToken", "abc123"); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestNewSQLiteStoreFromDB_SchemaError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS kv").WillReturnError(errors.New("readonly"))
	if _, err := NewSQLiteStoreFromDB(db); err == nil {
		t.Error("expected schema error, got nil")
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	s, mock := setupSQLiteMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM kv WHERE key = ?`)).
		WithArgs("accessToken").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.Delete(context.Background(), "accessToken"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
