package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const auditFileName = "audit_log.json"

// FileAuditRepository implements Repository using JSON file storage. The
// in-memory collection is the source of truth for reads and always accepts
// appends; the file write is best-effort so an unreachable disk degrades
// durability, never the caller's operation.
type FileAuditRepository struct {
	dataDir string
	entries []Entry
	mu      sync.RWMutex
}

// fileAuditData represents the structure of data stored in the JSON file
type fileAuditData struct {
	Entries []Entry `json:"entries"`
}

// NewFileAuditRepository creates a new file-based audit repository, loading
// any entries persisted by a previous run
func NewFileAuditRepository(dataDir string) (*FileAuditRepository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileAuditRepository{
		dataDir: dataDir,
		entries: make([]Entry, 0),
	}

	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load audit log: %w", err)
	}

	return repo, nil
}

// Append adds an entry to the collection. The local append always succeeds;
// a failed disk flush is logged and the entry stays queryable in memory.
func (r *FileAuditRepository) Append(ctx context.Context, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, entry)

	if err := r.save(); err != nil {
		slog.Error("Failed to flush audit log to disk", "err", err, "id", entry.ID)
	}
	return nil
}

// Query returns entries matching the filter, sorted by timestamp descending
func (r *FileAuditRepository) Query(ctx context.Context, filter Filter) ([]Entry, error) {
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
func (r *FileAuditRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries), nil
}

// Cleanup evicts the oldest entries until the retention cap is met
func (r *FileAuditRepository) Cleanup(ctx context.Context, params CleanupParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	retained, evicted := enforceRetention(r.entries, params)
	if evicted == 0 {
		return nil
	}
	r.entries = retained

	if err := r.save(); err != nil {
		slog.Error("Failed to flush audit log after cleanup", "err", err)
	}
	slog.Info("Audit retention enforced", "evicted", evicted, "retained", len(retained))
	return nil
}

func (r *FileAuditRepository) filePath() string {
	return filepath.Join(r.dataDir, auditFileName)
}

// load reads persisted entries from the JSON file. Caller must not hold the lock.
func (r *FileAuditRepository) load() error {
	data, err := os.ReadFile(r.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var fileData fileAuditData
	if err := json.Unmarshal(data, &fileData); err != nil {
		return fmt.Errorf("failed to parse audit log file: %w", err)
	}

	r.entries = fileData.Entries
	if r.entries == nil {
		r.entries = make([]Entry, 0)
	}
	slog.Debug("Loaded audit log", "entries", len(r.entries), "path", r.filePath())
	return nil
}

// save writes the collection to disk. Caller must hold the lock.
func (r *FileAuditRepository) save() error {
	data, err := json.MarshalIndent(fileAuditData{Entries: r.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal audit log: %w", err)
	}

	tmpPath := r.filePath() + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return os.Rename(tmpPath, r.filePath())
}
