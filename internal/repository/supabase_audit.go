package repository

import (
	"context"
	"fmt"
	"time"

	"marketplace-rest-api/internal/model"
	"marketplace-rest-api/internal/supabase"
	"marketplace-rest-api/pkg/uid"
)

const auditTable = "audit_logs"

// SupabaseAuditRepository stores audit entries in the audit_logs table
// using the service role.
type SupabaseAuditRepository struct {
	db *supabase.Client
}

// NewSupabaseAuditRepository creates a new audit repository.
func NewSupabaseAuditRepository(db *supabase.Client) *SupabaseAuditRepository {
	return &SupabaseAuditRepository{db: db.Service()}
}

// Insert stores one entry. ID and CreatedAt are filled when empty.
func (r *SupabaseAuditRepository) Insert(ctx context.Context, entry *model.AuditLogEntry) error {
	prepareAuditEntry(entry)

	resp, err := r.db.From(auditTable).Insert(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	if err := resp.Err(); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// List returns entries newest first with the total count.
func (r *SupabaseAuditRepository) List(ctx context.Context, limit, offset int) ([]model.AuditLogEntry, int64, error) {
	resp, err := r.db.From(auditTable).
		Select("*").
		Count("exact").
		Order("created_at", false).
		Limit(limit).
		Offset(offset).
		Execute(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}

	entries := []model.AuditLogEntry{}
	if err := resp.Decode(&entries); err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}

	total := resp.Total()
	if total < 0 {
		total = int64(len(entries))
	}
	return entries, total, nil
}

// Close is a no-op; the HTTP client has nothing to release.
func (r *SupabaseAuditRepository) Close() error {
	return nil
}

func prepareAuditEntry(entry *model.AuditLogEntry) {
	if entry.ID == "" {
		entry.ID = uid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if len(entry.Details) == 0 {
		entry.Details = []byte("{}")
	}
}

// Ensure SupabaseAuditRepository implements AuditRepository
var _ AuditRepository = (*SupabaseAuditRepository)(nil)
