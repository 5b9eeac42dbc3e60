package audit

import (
	"time"

	"github.com/google/uuid"
)

// EntryType identifies the lifecycle event an audit entry records
type EntryType string

const (
	EntryTypeSessionStart  EntryType = "SESSION_START"
	EntryTypeSessionAction EntryType = "SESSION_ACTION"
	EntryTypeSessionEnd    EntryType = "SESSION_END"
)

// MaxRetainedEntries is the retention cap for the audit collection.
// Cleanup evicts the oldest entries once the cap is exceeded.
const MaxRetainedEntries = 1000

// ClientMetadata captures where an impersonation session was started from
type ClientMetadata struct {
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Entry is the durable, queryable projection of an impersonation lifecycle
// or action event. Entries are append-only and immutable once recorded; the
// only mutation permitted on the collection is eviction under the retention
// policy.
type Entry struct {
	ID              uuid.UUID       `json:"id"`
	Type            EntryType       `json:"type"`
	SessionID       uuid.UUID       `json:"session_id"`
	AdminID         string          `json:"admin_id"`
	AdminEmail      string          `json:"admin_email"`
	TargetUserID    string          `json:"target_user_id"`
	TargetUserEmail string          `json:"target_user_email"`
	Timestamp       time.Time       `json:"timestamp"`
	Reason          string          `json:"reason,omitempty"`
	Action          string          `json:"action,omitempty"`
	Details         string          `json:"details,omitempty"`
	ClientMetadata  *ClientMetadata `json:"client_metadata,omitempty"`
	DurationMs      int64           `json:"duration_ms,omitempty"`
	ActionCount     int             `json:"action_count,omitempty"`
}

// Filter describes the structured predicates for querying the audit
// collection. Zero values mean "no constraint"; set predicates compose
// with logical AND. Date bounds are inclusive.
type Filter struct {
	AdminID      string
	TargetUserID string
	SessionID    uuid.UUID
	Type         EntryType
	StartDate    time.Time
	EndDate      time.Time
}

// Matches reports whether the entry satisfies every set predicate
func (f Filter) Matches(e Entry) bool {
	if f.AdminID != "" && e.AdminID != f.AdminID {
		return false
	}
	if f.TargetUserID != "" && e.TargetUserID != f.TargetUserID {
		return false
	}
	if f.SessionID != uuid.Nil && e.SessionID != f.SessionID {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if !f.StartDate.IsZero() && e.Timestamp.Before(f.StartDate) {
		return false
	}
	if !f.EndDate.IsZero() && e.Timestamp.After(f.EndDate) {
		return false
	}
	return true
}

// CleanupParams controls retention enforcement. ProtectSessionID names an
// in-flight session whose start record must survive eviction until its end
// record exists.
type CleanupParams struct {
	MaxEntries       int
	ProtectSessionID uuid.UUID
}

// DefaultCleanupParams returns cleanup parameters with the standard retention cap
func DefaultCleanupParams() CleanupParams {
	return CleanupParams{MaxEntries: MaxRetainedEntries}
}
