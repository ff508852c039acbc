package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"marketplace-rest-api/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockAudit(t *testing.T, driver string) (*SQLAuditRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewSQLAuditRepositoryFromDB(sqlx.NewDb(db, driver)), mock
}

func TestSQLAuditInsertRebindsForPostgres(t *testing.T) {
	repo, mock := newMockAudit(t, "postgres")

	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1, $2, $3, $4, $5, $6, $7)")).
		WithArgs(sqlmock.AnyArg(), "admin", "listing.reject", "listing", "l1", `{"reason":"spam"}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), &model.AuditLogEntry{
		ActorID:    "admin",
		Action:     "listing.reject",
		TargetType: "listing",
		TargetID:   "l1",
		Details:    []byte(`{"reason":"spam"}`),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLAuditInsertKeepsPlaceholdersForMySQL(t *testing.T) {
	repo, mock := newMockAudit(t, "mysql")

	mock.ExpectExec(regexp.QuoteMeta("VALUES (?, ?, ?, ?, ?, ?, ?)")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), &model.AuditLogEntry{ActorID: "a", Action: "x"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLAuditList(t *testing.T) {
	repo, mock := newMockAudit(t, "sqlite")
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_logs")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC")).
		WithArgs(2, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "actor_id", "action", "target_type", "target_id", "details", "created_at"}).
			AddRow("e1", "admin", "listing.approve", "listing", "l1", "{}", now).
			AddRow("e2", "admin", "listing.reject", "listing", "l2", `{"reason":"spam"}`, now))

	entries, total, err := repo.List(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, entries, 2)
	assert.Equal(t, "e1", entries[0].ID)
	assert.JSONEq(t, `{"reason":"spam"}`, string(entries[1].Details))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLAuditMigratePerDialect(t *testing.T) {
	repo, mock := newMockAudit(t, "mysql")
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS audit_logs").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, repo.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())

	repo, mock = newMockAudit(t, "postgres")
	mock.ExpectExec("TIMESTAMPTZ").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, repo.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditDriver(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"sqlite", "sqlite", false},
		{"SQLite", "sqlite", false},
		{"Postgres", "postgres", false},
		{"postgresql", "postgres", false},
		{"mysql", "mysql", false},
		{"oracle", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := auditDriver(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
