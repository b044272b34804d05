package sync

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/alfredjeanlab/facegate/internal/model"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

func exportPayload(t *testing.T, attempts ...model.Attempt) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := ExportJSONL(attempts, "kiosk-7", &buf); err != nil {
		t.Fatalf("ExportJSONL: %v", err)
	}
	return buf.Bytes()
}

func TestPostgresDestination_Write(t *testing.T) {
	db, mock := newMockDB(t)
	dest := &PostgresDestination{db: db}
	at := time.Date(2026, 10, 19, 6, 30, 0, 0, time.UTC)

	data := exportPayload(t,
		model.Attempt{ID: "att-1", At: at, Outcome: model.OutcomeFailure, CountBefore: 0, CountAfter: 1, Threshold: 3, Ran: true, ExitCode: 1, Duration: 2 * time.Second},
		model.Attempt{ID: "att-2", At: at.Add(time.Hour), Outcome: model.OutcomeTripped, CountBefore: 3, CountAfter: 3, Threshold: 3, Reason: "threshold reached"},
	)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO gate_attempts").
		WithArgs("att-1", "kiosk-7", at, "failure", 0, 1, 3, true, 1, false, int64(2000), "", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO gate_attempts").
		WithArgs("att-2", "kiosk-7", at.Add(time.Hour), "tripped", 3, 3, 3, false, 0, false, int64(0), "threshold reached", "").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := dest.Write(context.Background(), data); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestPostgresDestination_WriteEmpty(t *testing.T) {
	db, _ := newMockDB(t)
	dest := &PostgresDestination{db: db}

	// Header only: no transaction is opened.
	if err := dest.Write(context.Background(), exportPayload(t)); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestPostgresDestination_WriteRollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	dest := &PostgresDestination{db: db}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO gate_attempts").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	data := exportPayload(t, model.Attempt{ID: "att-1", Outcome: model.OutcomeFailure})
	if err := dest.Write(context.Background(), data); err == nil {
		t.Fatal("expected error")
	}
}

func TestPostgresDestination_WriteBadPayload(t *testing.T) {
	db, _ := newMockDB(t)
	dest := &PostgresDestination{db: db}

	if err := dest.Write(context.Background(), []byte("{not json")); err == nil {
		t.Fatal("expected decode error")
	}
}
