package seed

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/querydesk/querydesk/internal/store"
)

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestEnsureSkipsPopulatedTable(t *testing.T) {
	db, mock := newSQLMock(t)
	seeder := NewSeeder(db, store.DialectSQLite, 50, nil)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS employees")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM employees")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(50))

	if err := seeder.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestEnsureSeedsEmptyTable(t *testing.T) {
	db, mock := newSQLMock(t)
	seeder := NewSeeder(db, store.DialectSQLite, 12, nil)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS employees")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM employees")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	for i := 0; i < 12; i++ {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO employees")).
			WillReturnResult(sqlmock.NewResult(int64(i+1), 1))
	}
	mock.ExpectCommit()

	if err := seeder.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	db, _ := newSQLMock(t)
	seeder := NewSeeder(db, store.DialectSQLite, 30, nil)

	first := seeder.generate(20)
	second := seeder.generate(20)
	if len(first) != 20 || len(second) != 20 {
		t.Fatalf("generate() lengths = %d/%d, want 20", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("generate() row %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestGenerateProducesValidRows(t *testing.T) {
	db, _ := newSQLMock(t)
	seeder := NewSeeder(db, store.DialectSQLite, 30, nil)

	validDepartments := map[string]bool{}
	for _, d := range departments {
		validDepartments[d] = true
	}

	for _, e := range seeder.generate(20) {
		if e.ID <= len(canonicalEmployees) {
			t.Fatalf("generate() reused canonical id %d", e.ID)
		}
		if !validDepartments[e.Department] {
			t.Fatalf("generate() invalid department %q", e.Department)
		}
		if e.Salary < 30000 || e.Salary > 161000 {
			t.Fatalf("generate() salary %f out of range", e.Salary)
		}
		if e.FirstName == "" || e.LastName == "" || e.City == "" {
			t.Fatalf("generate() empty identity fields: %+v", e)
		}
	}
}
