package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEntry(entryType EntryType, sessionID uuid.UUID, ts time.Time) Entry {
	return Entry{
		ID:              uuid.New(),
		Type:            entryType,
		SessionID:       sessionID,
		AdminID:         "admin-1",
		AdminEmail:      "admin@example.com",
		TargetUserID:    "user-1",
		TargetUserEmail: "user@example.com",
		Timestamp:       ts,
	}
}

func TestService_Record(t *testing.T) {
	repo := NewInMemAuditRepository()
	service := NewService(repo)
	ctx := context.Background()

	t.Run("FillsIDAndTimestamp", func(t *testing.T) {
		recorded := service.Record(ctx, Entry{
			Type:      EntryTypeSessionStart,
			SessionID: uuid.New(),
		})
		assert.NotEqual(t, uuid.Nil, recorded.ID)
		assert.False(t, recorded.Timestamp.IsZero())

		count, err := service.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("PreservesCallerTimestamp", func(t *testing.T) {
		ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		recorded := service.Record(ctx, newTestEntry(EntryTypeSessionAction, uuid.New(), ts))
		assert.Equal(t, ts, recorded.Timestamp)
	})
}

type failingRepo struct {
	*InMemAuditRepository
}

func (r *failingRepo) Append(ctx context.Context, entry Entry) error {
	return fmt.Errorf("disk full")
}

func TestService_RecordNeverFailsCaller(t *testing.T) {
	var reported []error
	service := NewService(&failingRepo{NewInMemAuditRepository()},
		WithRecordErrorHandler(func(entry Entry, err error) {
			reported = append(reported, err)
		}))

	recorded := service.Record(context.Background(), Entry{
		Type:      EntryTypeSessionStart,
		SessionID: uuid.New(),
	})

	// The caller still gets a fully formed entry; the failure is
	// reported out-of-band instead
	assert.NotEqual(t, uuid.Nil, recorded.ID)
	require.Len(t, reported, 1)
	assert.ErrorContains(t, reported[0], "disk full")
}

func TestService_Query(t *testing.T) {
	repo := NewInMemAuditRepository()
	service := NewService(repo)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	sessionA := uuid.New()
	sessionB := uuid.New()

	first := newTestEntry(EntryTypeSessionStart, sessionA, base)
	second := newTestEntry(EntryTypeSessionAction, sessionA, base.Add(1*time.Minute))
	second.Action = "update_profile"
	third := newTestEntry(EntryTypeSessionEnd, sessionA, base.Add(2*time.Minute))
	fourth := newTestEntry(EntryTypeSessionStart, sessionB, base.Add(3*time.Minute))
	fourth.AdminID = "admin-2"
	fourth.AdminEmail = "other@example.com"

	for _, entry := range []Entry{first, second, third, fourth} {
		service.Record(ctx, entry)
	}

	t.Run("SortedMostRecentFirst", func(t *testing.T) {
		entries, err := service.Query(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, entries, 4)
		for i := 1; i < len(entries); i++ {
			assert.False(t, entries[i-1].Timestamp.Before(entries[i].Timestamp),
				"entries must be ordered newest first")
		}
		assert.Equal(t, fourth.ID, entries[0].ID)
	})

	t.Run("FilterBySession", func(t *testing.T) {
		entries, err := service.Query(ctx, Filter{SessionID: sessionA})
		require.NoError(t, err)
		assert.Len(t, entries, 3)
	})

	t.Run("FilterByAdmin", func(t *testing.T) {
		entries, err := service.Query(ctx, Filter{AdminID: "admin-2"})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, fourth.ID, entries[0].ID)
	})

	t.Run("FilterByType", func(t *testing.T) {
		entries, err := service.Query(ctx, Filter{Type: EntryTypeSessionStart})
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("FiltersComposeWithAnd", func(t *testing.T) {
		entries, err := service.Query(ctx, Filter{
			SessionID: sessionA,
			Type:      EntryTypeSessionStart,
		})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, first.ID, entries[0].ID)
	})

	t.Run("DateBoundsInclusive", func(t *testing.T) {
		entries, err := service.Query(ctx, Filter{
			StartDate: second.Timestamp,
			EndDate:   third.Timestamp,
		})
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})
}

func TestService_Search(t *testing.T) {
	repo := NewInMemAuditRepository()
	service := NewService(repo)
	ctx := context.Background()

	sessionID := uuid.New()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	action := newTestEntry(EntryTypeSessionAction, sessionID, base.Add(time.Minute))
	action.Action = "update_profile"
	action.Details = "Changed shipping address"
	service.Record(ctx, newTestEntry(EntryTypeSessionStart, sessionID, base))
	service.Record(ctx, action)

	t.Run("MatchesDetailsCaseInsensitive", func(t *testing.T) {
		entries, err := service.Search(ctx, Filter{}, "SHIPPING")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, action.ID, entries[0].ID)
	})

	t.Run("MatchesAdminEmail", func(t *testing.T) {
		entries, err := service.Search(ctx, Filter{}, "admin@example.com")
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("NoMatch", func(t *testing.T) {
		entries, err := service.Search(ctx, Filter{}, "no-such-text")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("EmptyTextReturnsFilterResult", func(t *testing.T) {
		entries, err := service.Search(ctx, Filter{Type: EntryTypeSessionAction}, "")
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestService_Cleanup(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("EvictsOldestBeyondCap", func(t *testing.T) {
		repo := NewInMemAuditRepository()
		service := NewService(repo, WithRetentionCap(1000))

		var oldest []uuid.UUID
		for i := 0; i < 1005; i++ {
			entry := newTestEntry(EntryTypeSessionAction, uuid.New(), base.Add(time.Duration(i)*time.Second))
			if i < 5 {
				oldest = append(oldest, entry.ID)
			}
			require.NoError(t, repo.Append(ctx, entry))
		}

		require.NoError(t, service.Cleanup(ctx, uuid.Nil))

		count, err := service.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1000, count)

		entries, err := service.Query(ctx, Filter{})
		require.NoError(t, err)
		surviving := make(map[uuid.UUID]bool, len(entries))
		for _, entry := range entries {
			surviving[entry.ID] = true
		}
		for _, id := range oldest {
			assert.False(t, surviving[id], "the 5 oldest entries must be evicted")
		}
	})

	t.Run("IdempotentUnderCap", func(t *testing.T) {
		repo := NewInMemAuditRepository()
		service := NewService(repo, WithRetentionCap(1000))

		for i := 0; i < 10; i++ {
			require.NoError(t, repo.Append(ctx, newTestEntry(EntryTypeSessionAction, uuid.New(), base.Add(time.Duration(i)*time.Second))))
		}

		require.NoError(t, service.Cleanup(ctx, uuid.Nil))
		require.NoError(t, service.Cleanup(ctx, uuid.Nil))

		count, err := service.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 10, count)
	})

	t.Run("ProtectsOpenSessionStart", func(t *testing.T) {
		repo := NewInMemAuditRepository()
		service := NewService(repo, WithRetentionCap(100))

		openSession := uuid.New()
		start := newTestEntry(EntryTypeSessionStart, openSession, base)
		require.NoError(t, repo.Append(ctx, start))
		for i := 1; i <= 105; i++ {
			require.NoError(t, repo.Append(ctx, newTestEntry(EntryTypeSessionAction, openSession, base.Add(time.Duration(i)*time.Second))))
		}

		require.NoError(t, service.Cleanup(ctx, openSession))

		count, err := service.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 100, count)

		// The oldest entry is the start record, yet it must survive
		// because its session is still open
		entries, err := service.Query(ctx, Filter{SessionID: openSession, Type: EntryTypeSessionStart})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, start.ID, entries[0].ID)
	})
}
