package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/atlaslab/labmanager/internal/app/domain/customer"
	"github.com/atlaslab/labmanager/internal/app/domain/report"
	"github.com/atlaslab/labmanager/internal/app/storage"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestGetEntryNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM result_entries WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetEntry(context.Background(), 42)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateCustomerDuplicateCode(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO customers`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "customers_code_key"})

	_, err := store.CreateCustomer(context.Background(), customer.Customer{Code: "AB12C", Name: "Acme"})
	if !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}

func TestWithinTxCommitsOnSuccess(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM request_logs WHERE created_at < \$1`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(tx storage.Backend) error {
		_, err := tx.PurgeRequestLogs(context.Background(), time.Now())
		return err
	})
	if err != nil {
		t.Fatalf("within tx: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("business rule violated")
	err := store.WithinTx(context.Background(), func(storage.Backend) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want business error", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMaxReportSeqParsesNull(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT MAX`).
		WithArgs(2026).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	max, err := store.MaxReportSeq(context.Background(), 2026)
	if err != nil {
		t.Fatalf("max seq: %v", err)
	}
	if max != 0 {
		t.Fatalf("max = %d, want 0 for empty year", max)
	}
}

func TestUpdateReportPreservesSnapshotColumns(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectExec(`UPDATE reports`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	cols := []string{"id", "result_entry_id", "report_number", "status", "report_data", "fingerprint", "notes", "view_key",
		"created_by", "created_at", "updated_at", "validated_at", "validated_by", "finalized_at", "finalized_by"}
	mock.ExpectQuery(`SELECT .* FROM reports WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, 2, "RPT-2026-001", "validated", []byte(`{}`), "fp", nil, nil, 1, now, now, now, 1, nil, nil))

	updated, err := store.UpdateReport(context.Background(), report.Report{ID: 1, Status: report.StatusValidated})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Fingerprint != "fp" || updated.Number != "RPT-2026-001" {
		t.Fatalf("snapshot fields not re-read: %+v", updated)
	}
}
