package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service provides recording and reporting over the audit collection.
// Recording is deliberately infallible from the caller's point of view:
// identity and session-state integrity always take precedence over audit
// completeness, so a failed append degrades observability instead of
// failing the operation that triggered it.
type Service struct {
	repo         Repository
	forwarder    *Forwarder
	retentionCap int
	onRecordErr  func(entry Entry, err error)
}

// ServiceOption configures an audit Service
type ServiceOption func(*Service)

// WithForwarder attaches a durable-sink forwarder; every recorded entry is
// handed to it for at-least-once delivery
func WithForwarder(f *Forwarder) ServiceOption {
	return func(s *Service) {
		s.forwarder = f
	}
}

// WithRetentionCap overrides the default retention cap
func WithRetentionCap(max int) ServiceOption {
	return func(s *Service) {
		s.retentionCap = max
	}
}

// WithRecordErrorHandler sets the handler invoked when the local append fails
func WithRecordErrorHandler(h func(entry Entry, err error)) ServiceOption {
	return func(s *Service) {
		s.onRecordErr = h
	}
}

// NewService creates a new audit service
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:         repo,
		retentionCap: MaxRetainedEntries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record appends an entry to the collection and hands it to the durable
// forwarder. Failures are logged and reported out-of-band, never returned.
func (s *Service) Record(ctx context.Context, entry Entry) Entry {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		slog.Error("Failed to append audit entry", "id", entry.ID, "type", entry.Type, "err", err)
		if s.onRecordErr != nil {
			s.onRecordErr(entry, err)
		}
	}

	if s.forwarder != nil {
		s.forwarder.Enqueue(entry)
	}
	return entry
}

// Query returns entries matching the filter, most recent first
func (s *Service) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	entries, err := s.repo.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	return entries, nil
}

// Search combines the structured filter with a case-insensitive substring
// match over admin email, target email, action and details
func (s *Service) Search(ctx context.Context, filter Filter, text string) ([]Entry, error) {
	entries, err := s.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return entries, nil
	}

	needle := strings.ToLower(text)
	matched := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if entryMatchesText(entry, needle) {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

// Count returns the number of retained entries
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Cleanup enforces the retention cap, keeping the given in-flight session's
// start record out of eviction. Pass uuid.Nil when no session is active.
func (s *Service) Cleanup(ctx context.Context, protectSessionID uuid.UUID) error {
	err := s.repo.Cleanup(ctx, CleanupParams{
		MaxEntries:       s.retentionCap,
		ProtectSessionID: protectSessionID,
	})
	if err != nil {
		return fmt.Errorf("failed to enforce audit retention: %w", err)
	}
	return nil
}

func entryMatchesText(entry Entry, needle string) bool {
	for _, field := range []string{entry.AdminEmail, entry.TargetUserEmail, entry.Action, entry.Details} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
