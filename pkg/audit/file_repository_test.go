package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRepo creates a temporary directory and repository for testing
func setupTestRepo(t *testing.T) (*FileAuditRepository, string) {
	tempDir := filepath.Join(os.TempDir(), "audit-test-"+uuid.New().String())
	err := os.MkdirAll(tempDir, 0755)
	require.NoError(t, err)

	repo, err := NewFileAuditRepository(tempDir)
	require.NoError(t, err)

	t.Cleanup(func() {
		os.RemoveAll(tempDir)
	})

	return repo, tempDir
}

func TestFileAuditRepository_NewRepository(t *testing.T) {
	tempDir := filepath.Join(os.TempDir(), "audit-test-new-"+uuid.New().String())
	defer os.RemoveAll(tempDir)

	// Should create directory if it doesn't exist
	repo, err := NewFileAuditRepository(tempDir)
	assert.NoError(t, err)
	assert.NotNil(t, repo)
	assert.DirExists(t, tempDir)
}

func TestFileAuditRepository_AppendAndQuery(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	sessionID := uuid.New()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	entry := newTestEntry(EntryTypeSessionStart, sessionID, base)
	require.NoError(t, repo.Append(ctx, entry))

	entries, err := repo.Query(ctx, Filter{SessionID: sessionID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
	assert.Equal(t, EntryTypeSessionStart, entries[0].Type)
}

func TestFileAuditRepository_SurvivesRestart(t *testing.T) {
	repo, tempDir := setupTestRepo(t)
	ctx := context.Background()

	sessionID := uuid.New()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	start := newTestEntry(EntryTypeSessionStart, sessionID, base)
	end := newTestEntry(EntryTypeSessionEnd, sessionID, base.Add(5*time.Minute))
	end.DurationMs = 300000
	end.ActionCount = 2
	require.NoError(t, repo.Append(ctx, start))
	require.NoError(t, repo.Append(ctx, end))

	// A new repository over the same directory must see the entries a
	// previous run persisted
	reopened, err := NewFileAuditRepository(tempDir)
	require.NoError(t, err)

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	entries, err := reopened.Query(ctx, Filter{SessionID: sessionID})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, end.ID, entries[0].ID)
	assert.Equal(t, int64(300000), entries[0].DurationMs)
	assert.Equal(t, start.ID, entries[1].ID)
}

func TestFileAuditRepository_CleanupPersists(t *testing.T) {
	repo, tempDir := setupTestRepo(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		require.NoError(t, repo.Append(ctx, newTestEntry(EntryTypeSessionAction, uuid.New(), base.Add(time.Duration(i)*time.Second))))
	}

	require.NoError(t, repo.Cleanup(ctx, CleanupParams{MaxEntries: 10}))

	reopened, err := NewFileAuditRepository(tempDir)
	require.NoError(t, err)

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, count)

	// The survivors are the 10 most recent
	entries, err := reopened.Query(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 10)
	assert.Equal(t, base.Add(19*time.Second), entries[0].Timestamp)
	assert.Equal(t, base.Add(10*time.Second), entries[9].Timestamp)
}
