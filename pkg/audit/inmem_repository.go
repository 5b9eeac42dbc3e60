package audit

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// InMemAuditRepository implements Repository using an in-memory slice.
// Reads operate on snapshot copies so callers never observe torn state.
type InMemAuditRepository struct {
	entries []Entry
	mu      sync.RWMutex
}

// NewInMemAuditRepository creates a new in-memory audit repository
func NewInMemAuditRepository() *InMemAuditRepository {
	return &InMemAuditRepository{
		entries: make([]Entry, 0),
	}
}

// Append adds an entry to the collection
func (r *InMemAuditRepository) Append(ctx context.Context, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, entry)
	slog.Debug("Audit entry appended", "id", entry.ID, "type", entry.Type, "sessionId", entry.SessionID)
	return nil
}

// Query returns entries matching the filter, sorted by timestamp descending
func (r *InMemAuditRepository) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]Entry, 0)
	for _, entry := range r.entries {
		if filter.Matches(entry) {
			results = append(results, entry)
		}
	}

	sortByTimestampDesc(results)
	return results, nil
}

// Count returns the number of retained entries
func (r *InMemAuditRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries), nil
}

// Cleanup evicts the oldest entries until the retention cap is met
func (r *InMemAuditRepository) Cleanup(ctx context.Context, params CleanupParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	retained, evicted := enforceRetention(r.entries, params)
	if evicted > 0 {
		r.entries = retained
		slog.Info("Audit retention enforced", "evicted", evicted, "retained", len(retained))
	}
	return nil
}

// sortByTimestampDesc sorts entries most recent first. The sort is stable so
// entries sharing a timestamp keep their append order relative to each other.
func sortByTimestampDesc(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
}

// enforceRetention returns the entries that survive eviction and the number
// evicted. Eviction removes the chronologically oldest entries first, but
// never the protected session's start record while that session is open.
func enforceRetention(entries []Entry, params CleanupParams) ([]Entry, int) {
	maxEntries := params.MaxEntries
	if maxEntries <= 0 {
		maxEntries = MaxRetainedEntries
	}
	excess := len(entries) - maxEntries
	if excess <= 0 {
		return entries, 0
	}

	oldestFirst := make([]Entry, len(entries))
	copy(oldestFirst, entries)
	sort.SliceStable(oldestFirst, func(i, j int) bool {
		return oldestFirst[i].Timestamp.Before(oldestFirst[j].Timestamp)
	})

	evict := make(map[uuid.UUID]bool, excess)
	for _, entry := range oldestFirst {
		if excess == 0 {
			break
		}
		if params.ProtectSessionID != uuid.Nil &&
			entry.SessionID == params.ProtectSessionID &&
			entry.Type == EntryTypeSessionStart {
			continue
		}
		evict[entry.ID] = true
		excess--
	}

	retained := make([]Entry, 0, maxEntries)
	for _, entry := range entries {
		if !evict[entry.ID] {
			retained = append(retained, entry)
		}
	}
	return retained, len(evict)
}
