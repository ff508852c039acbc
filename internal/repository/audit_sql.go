package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"marketplace-rest-api/internal/model"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLAuditRepository implements AuditRepository on sqlite, postgres or mysql.
type SQLAuditRepository struct {
	db *sqlx.DB
}

type auditRow struct {
	ID         string    `db:"id"`
	ActorID    string    `db:"actor_id"`
	Action     string    `db:"action"`
	TargetType string    `db:"target_type"`
	TargetID   string    `db:"target_id"`
	Details    string    `db:"details"`
	CreatedAt  time.Time `db:"created_at"`
}

// NewSQLAuditRepository opens the database for storeType and creates the
// audit table if needed.
func NewSQLAuditRepository(storeType, dsn string) (*SQLAuditRepository, error) {
	driver, err := auditDriver(storeType)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", driver, err)
	}

	if driver == "sqlite" {
		db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}

	repo := NewSQLAuditRepositoryFromDB(db)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit table: %w", err)
	}
	return repo, nil
}

// NewSQLAuditRepositoryFromDB wraps an existing connection.
func NewSQLAuditRepositoryFromDB(db *sqlx.DB) *SQLAuditRepository {
	return &SQLAuditRepository{db: db}
}

func auditDriver(storeType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(storeType)) {
	case "sqlite":
		return "sqlite", nil
	case "postgres", "postgresql":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	default:
		return "", fmt.Errorf("unsupported audit store type: %s", storeType)
	}
}

// Migrate creates the audit_logs table for the connection's dialect.
func (r *SQLAuditRepository) Migrate(ctx context.Context) error {
	var stmts []string
	switch r.db.DriverName() {
	case "postgres":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS audit_logs (
				id TEXT PRIMARY KEY,
				actor_id TEXT NOT NULL,
				action TEXT NOT NULL,
				target_type TEXT NOT NULL,
				target_id TEXT NOT NULL,
				details TEXT NOT NULL DEFAULT '{}',
				created_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at)`,
		}
	case "mysql":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS audit_logs (
				id VARCHAR(36) PRIMARY KEY,
				actor_id VARCHAR(36) NOT NULL,
				action VARCHAR(64) NOT NULL,
				target_type VARCHAR(64) NOT NULL,
				target_id VARCHAR(64) NOT NULL,
				details TEXT NOT NULL,
				created_at DATETIME(6) NOT NULL,
				INDEX idx_audit_logs_created_at (created_at)
			)`,
		}
	default:
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS audit_logs (
				id TEXT PRIMARY KEY,
				actor_id TEXT NOT NULL,
				action TEXT NOT NULL,
				target_type TEXT NOT NULL,
				target_id TEXT NOT NULL,
				details TEXT NOT NULL DEFAULT '{}',
				created_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at)`,
		}
	}

	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Insert stores one entry.
func (r *SQLAuditRepository) Insert(ctx context.Context, entry *model.AuditLogEntry) error {
	prepareAuditEntry(entry)

	query := r.db.Rebind(`
		INSERT INTO audit_logs (id, actor_id, action, target_type, target_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.ActorID, entry.Action, entry.TargetType, entry.TargetID,
		string(entry.Details), entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// List returns entries newest first with the total count.
func (r *SQLAuditRepository) List(ctx context.Context, limit, offset int) ([]model.AuditLogEntry, int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM audit_logs`); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	query := r.db.Rebind(`
		SELECT id, actor_id, action, target_type, target_id, details, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`)

	var rows []auditRow
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}

	entries := make([]model.AuditLogEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, model.AuditLogEntry{
			ID:         row.ID,
			ActorID:    row.ActorID,
			Action:     row.Action,
			TargetType: row.TargetType,
			TargetID:   row.TargetID,
			Details:    []byte(row.Details),
			CreatedAt:  row.CreatedAt,
		})
	}
	return entries, total, nil
}

// Close closes the database connection.
func (r *SQLAuditRepository) Close() error {
	return r.db.Close()
}

// Ensure SQLAuditRepository implements AuditRepository
var _ AuditRepository = (*SQLAuditRepository)(nil)
