package impersonate

import (
	"time"

	"github.com/google/uuid"

	"github.com/tendant/simple-dashboard/pkg/clientinfo"
)

// DefaultReason is recorded when a session is started without an explicit reason
const DefaultReason = "Administrative support"

// Admin is the real, authenticated operator. Immutable for the lifetime of
// a session; supplied by the authentication collaborator.
type Admin struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Target is the user being impersonated. Supplied at session start by the
// directory collaborator; immutable for the session.
type Target struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// EffectiveUser is the identity the rest of the dashboard should treat as
// currently acting: the target while impersonating, the admin otherwise.
type EffectiveUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Role         string `json:"role,omitempty"`
	Impersonated bool   `json:"impersonated"`
}

// ActionRecord is one action taken under borrowed identity. Immutable once
// appended; ordering within a session is append order.
type ActionRecord struct {
	ID         uuid.UUID   `json:"id"`
	Timestamp  time.Time   `json:"timestamp"`
	ActionType string      `json:"action_type"`
	Details    string      `json:"details,omitempty"`
	Route      string      `json:"route,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
}

// Session is the live impersonation session. It exists only in memory: the
// session itself is never persisted, only its audit projections, so a crash
// or reload can never resume a stale impersonation.
type Session struct {
	ID             uuid.UUID                 `json:"id"`
	Admin          Admin                     `json:"admin"`
	Target         Target                    `json:"target"`
	StartedAt      time.Time                 `json:"started_at"`
	Reason         string                    `json:"reason"`
	ClientMetadata clientinfo.ClientMetadata `json:"client_metadata"`
	Actions        []ActionRecord            `json:"actions"`
}

// StartRequest carries the inputs for starting a session
type StartRequest struct {
	Admin     Admin
	Target    Target
	Reason    string
	UserAgent string
}

// EndSummary reports what a session amounted to once ended
type EndSummary struct {
	SessionID        uuid.UUID `json:"session_id"`
	DurationMs       int64     `json:"duration_ms"`
	ActionsPerformed int       `json:"actions_performed"`
	Ended            bool      `json:"ended"`
}
