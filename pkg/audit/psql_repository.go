package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresAuditRepository implements Repository using PostgreSQL
type PostgresAuditRepository struct {
	db DBTX
}

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// NewPostgresAuditRepository creates a new PostgreSQL audit repository
func NewPostgresAuditRepository(db DBTX) *PostgresAuditRepository {
	return &PostgresAuditRepository{
		db: db,
	}
}

// Append adds an entry to the audit_entry table
func (r *PostgresAuditRepository) Append(ctx context.Context, entry Entry) error {
	var metadata []byte
	if entry.ClientMetadata != nil {
		var err error
		metadata, err = json.Marshal(entry.ClientMetadata)
		if err != nil {
			return fmt.Errorf("failed to marshal client metadata: %w", err)
		}
	}

	query := `
		INSERT INTO audit_entry (
			id, entry_type, session_id, admin_id, admin_email, target_user_id, target_user_email,
			occurred_at, reason, action, details, client_metadata, duration_ms, action_count
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
	`
	_, err := r.db.Exec(ctx, query,
		entry.ID,
		string(entry.Type),
		entry.SessionID,
		entry.AdminID,
		entry.AdminEmail,
		entry.TargetUserID,
		entry.TargetUserEmail,
		entry.Timestamp,
		entry.Reason,
		entry.Action,
		entry.Details,
		metadata,
		entry.DurationMs,
		entry.ActionCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	slog.Debug("Audit entry appended", "id", entry.ID, "type", entry.Type)
	return nil
}

// Query returns entries matching the filter, sorted by timestamp descending
func (r *PostgresAuditRepository) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	conditions := []string{}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.AdminID != "" {
		conditions = append(conditions, "admin_id = "+arg(filter.AdminID))
	}
	if filter.TargetUserID != "" {
		conditions = append(conditions, "target_user_id = "+arg(filter.TargetUserID))
	}
	if filter.SessionID != uuid.Nil {
		conditions = append(conditions, "session_id = "+arg(filter.SessionID))
	}
	if filter.Type != "" {
		conditions = append(conditions, "entry_type = "+arg(string(filter.Type)))
	}
	if !filter.StartDate.IsZero() {
		conditions = append(conditions, "occurred_at >= "+arg(filter.StartDate))
	}
	if !filter.EndDate.IsZero() {
		conditions = append(conditions, "occurred_at <= "+arg(filter.EndDate))
	}

	query := `
		SELECT id, entry_type, session_id, admin_id, admin_email, target_user_id, target_user_email,
			occurred_at, reason, action, details, client_metadata, duration_ms, action_count
		FROM audit_entry
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY occurred_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit entries: %w", err)
	}

	return entries, nil
}

// Count returns the number of retained entries
func (r *PostgresAuditRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM audit_entry").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return count, nil
}

// Cleanup evicts the oldest entries until the retention cap is met. The
// protected session's start record is excluded from eviction.
func (r *PostgresAuditRepository) Cleanup(ctx context.Context, params CleanupParams) error {
	maxEntries := params.MaxEntries
	if maxEntries <= 0 {
		maxEntries = MaxRetainedEntries
	}

	count, err := r.Count(ctx)
	if err != nil {
		return err
	}
	excess := count - maxEntries
	if excess <= 0 {
		return nil
	}

	query := `
		DELETE FROM audit_entry
		WHERE id IN (
			SELECT id FROM audit_entry
			WHERE NOT (session_id = $1 AND entry_type = $2)
			ORDER BY occurred_at ASC
			LIMIT $3
		)
	`
	tag, err := r.db.Exec(ctx, query, params.ProtectSessionID, string(EntryTypeSessionStart), excess)
	if err != nil {
		return fmt.Errorf("failed to evict audit entries: %w", err)
	}

	slog.Info("Audit retention enforced", "evicted", tag.RowsAffected(), "cap", maxEntries)
	return nil
}

func scanEntry(row pgx.Row) (Entry, error) {
	var entry Entry
	var entryType string
	var metadata []byte

	err := row.Scan(
		&entry.ID,
		&entryType,
		&entry.SessionID,
		&entry.AdminID,
		&entry.AdminEmail,
		&entry.TargetUserID,
		&entry.TargetUserEmail,
		&entry.Timestamp,
		&entry.Reason,
		&entry.Action,
		&entry.Details,
		&metadata,
		&entry.DurationMs,
		&entry.ActionCount,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to scan audit entry: %w", err)
	}

	entry.Type = EntryType(entryType)
	if len(metadata) > 0 {
		var cm ClientMetadata
		if err := json.Unmarshal(metadata, &cm); err != nil {
			return Entry{}, fmt.Errorf("failed to parse client metadata: %w", err)
		}
		entry.ClientMetadata = &cm
	}
	return entry, nil
}
