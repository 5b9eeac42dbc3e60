package audit

import (
	"context"
)

// Repository defines the interface for audit entry storage operations.
// Implementations must return query results sorted by timestamp descending
// regardless of insertion order, and must observe a consistent snapshot for
// Query and Cleanup.
type Repository interface {
	// Append adds an entry to the collection. Entries are immutable after this call.
	Append(ctx context.Context, entry Entry) error

	// Query returns entries matching the filter, sorted by timestamp descending
	Query(ctx context.Context, filter Filter) ([]Entry, error)

	// Count returns the number of retained entries
	Count(ctx context.Context) (int, error)

	// Cleanup enforces the retention cap by evicting the oldest entries first.
	// Idempotent: repeated calls with no intervening Append are no-ops after
	// the first. The protected session's start record is never evicted.
	Cleanup(ctx context.Context, params CleanupParams) error
}
