package api

import (
	"github.com/tendant/simple-dashboard/pkg/impersonate"
)

// CreateImpersonateRequest is the body for POST /impersonate
type CreateImpersonateRequest struct {
	TargetUserID string `json:"target_user_id"`
	Reason       string `json:"reason,omitempty"`
}

// LogActionRequest is the body for POST /impersonate/actions
type LogActionRequest struct {
	ActionType string      `json:"action_type"`
	Details    string      `json:"details,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
}

// SessionResponse describes the active session to the banner component
type SessionResponse struct {
	SessionID   string `json:"session_id"`
	AdminEmail  string `json:"admin_email"`
	TargetEmail string `json:"target_email"`
	TargetName  string `json:"target_name"`
	StartedAt   string `json:"started_at"`
	Reason      string `json:"reason"`
}

// ContextResponse reports the effective acting identity
type ContextResponse struct {
	EffectiveUser impersonate.EffectiveUser `json:"effective_user"`
	Session       *SessionResponse          `json:"session,omitempty"`
}

// ErrorResponse is the error body for impersonation endpoints
type ErrorResponse struct {
	Error string `json:"error"`
}
