package impersonate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/simple-dashboard/pkg/audit"
	"github.com/tendant/simple-dashboard/pkg/clientinfo"
	"github.com/tendant/simple-dashboard/pkg/notify"
)

// Service owns the single active impersonation session. It is the only
// writer of session state: Start, LogAction and End serialize every
// transition and project each one into the audit trail.
//
// Construct one instance and inject it wherever the dashboard dispatches
// user actions; the service is deliberately not a package-level singleton.
type Service struct {
	mu      sync.Mutex
	session *Session
	route   string

	auditService *audit.Service
	ipLookup     clientinfo.IPLookup
	notifier     notify.Notifier
	now          func() time.Time

	// invalidation hooks run after End clears the session, so
	// identity-dependent caches rebuild from the real admin identity
	invalidate []func()
}

// Option is a function that configures a Service
type Option func(*Service)

// WithIPLookup sets the best-effort client IP lookup collaborator
func WithIPLookup(lookup clientinfo.IPLookup) Option {
	return func(s *Service) {
		s.ipLookup = lookup
	}
}

// WithNotifier sets the security notification collaborator
func WithNotifier(notifier notify.Notifier) Option {
	return func(s *Service) {
		s.notifier = notifier
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new impersonation service recording into the given
// audit service
func NewService(auditService *audit.Service, opts ...Option) *Service {
	s := &Service{
		auditService: auditService,
		notifier:     notify.NoopNotifier{},
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnEnd registers a hook run each time a session ends. Hooks must rebuild
// any identity-scoped cached state from the real admin identity.
func (s *Service) OnEnd(hook func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidate = append(s.invalidate, hook)
}

// Start begins impersonating the target. Fails with ErrAlreadyImpersonating
// when a session is active; at most one session exists at a time.
func (s *Service) Start(ctx context.Context, req StartRequest) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		return nil, ErrAlreadyImpersonating{
			AdminEmail:  s.session.Admin.Email,
			TargetEmail: s.session.Target.Email,
		}
	}

	reason := req.Reason
	if reason == "" {
		reason = DefaultReason
	}

	session := &Session{
		ID:        uuid.New(),
		Admin:     req.Admin,
		Target:    req.Target,
		StartedAt: s.now(),
		Reason:    reason,
		ClientMetadata: clientinfo.ClientMetadata{
			IPAddress: s.resolveIP(ctx),
			UserAgent: req.UserAgent,
		},
		Actions: make([]ActionRecord, 0),
	}
	s.session = session

	slog.Info("Impersonation session started",
		"sessionId", session.ID,
		"adminEmail", session.Admin.Email,
		"targetEmail", session.Target.Email,
		"reason", session.Reason)

	s.record(ctx, audit.Entry{
		Type:      audit.EntryTypeSessionStart,
		SessionID: session.ID,
		Timestamp: session.StartedAt,
		Reason:    session.Reason,
		ClientMetadata: &audit.ClientMetadata{
			IPAddress: session.ClientMetadata.IPAddress,
			UserAgent: session.ClientMetadata.UserAgent,
		},
	})

	s.notifyAsync(notify.Event{
		Kind:    notify.ImpersonationStarted,
		Subject: fmt.Sprintf("Impersonation started: %s acting as %s", session.Admin.Email, session.Target.Email),
		Body:    session.Reason,
		Data: map[string]interface{}{
			"session_id": session.ID.String(),
			"admin":      session.Admin.Email,
			"target":     session.Target.Email,
			"ip_address": session.ClientMetadata.IPAddress,
		},
	})

	copied := *session
	return &copied, nil
}

// LogAction records an action taken under borrowed identity. A benign no-op
// when no session is active, so instrumentation may fire unconditionally;
// never returns an error to the instrumented caller.
func (s *Service) LogAction(ctx context.Context, actionType, details string, payload interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return
	}

	action := ActionRecord{
		ID:         uuid.New(),
		Timestamp:  s.now(),
		ActionType: actionType,
		Details:    details,
		Route:      s.route,
		Payload:    payload,
	}
	s.session.Actions = append(s.session.Actions, action)

	slog.Debug("Impersonated action logged",
		"sessionId", s.session.ID,
		"actionType", actionType,
		"route", action.Route)

	s.record(ctx, audit.Entry{
		Type:      audit.EntryTypeSessionAction,
		SessionID: s.session.ID,
		Timestamp: action.Timestamp,
		Action:    actionType,
		Details:   details,
	})
}

// End closes the active session and returns its summary. A no-op returning
// a sentinel summary when no session is active. The session is cleared and
// invalidation hooks run before the end entry is recorded: loss of audit
// durability must never leave a borrowed identity in place.
func (s *Service) End(ctx context.Context) EndSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return EndSummary{}
	}

	session := s.session
	endedAt := s.now()
	summary := EndSummary{
		SessionID:        session.ID,
		DurationMs:       endedAt.Sub(session.StartedAt).Milliseconds(),
		ActionsPerformed: len(session.Actions),
		Ended:            true,
	}

	s.session = nil
	s.route = ""
	for _, hook := range s.invalidate {
		hook()
	}

	slog.Info("Impersonation session ended",
		"sessionId", session.ID,
		"adminEmail", session.Admin.Email,
		"durationMs", summary.DurationMs,
		"actions", summary.ActionsPerformed)

	s.recordFor(ctx, session, audit.Entry{
		Type:        audit.EntryTypeSessionEnd,
		SessionID:   session.ID,
		Timestamp:   endedAt,
		DurationMs:  summary.DurationMs,
		ActionCount: summary.ActionsPerformed,
	})

	s.notifyAsync(notify.Event{
		Kind:    notify.ImpersonationEnded,
		Subject: fmt.Sprintf("Impersonation ended: %s", session.Admin.Email),
		Data: map[string]interface{}{
			"session_id":  session.ID.String(),
			"admin":       session.Admin.Email,
			"target":      session.Target.Email,
			"duration_ms": summary.DurationMs,
			"actions":     summary.ActionsPerformed,
		},
	})

	return summary
}

// SetRoute tracks the current navigation path; LogAction captures it on
// every action record
func (s *Service) SetRoute(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.route = path
}

// IsImpersonating reports whether a session is active
func (s *Service) IsImpersonating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}

// CurrentSession returns a copy of the active session, or nil when idle
func (s *Service) CurrentSession() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil
	}
	copied := *s.session
	copied.Actions = append([]ActionRecord(nil), s.session.Actions...)
	return &copied
}

// EffectiveUser derives the identity the dashboard should treat as acting:
// the impersonation target while a session is active, otherwise the given
// admin. Recomputed on every call, never cached across transitions.
func (s *Service) EffectiveUser(admin Admin) EffectiveUser {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		target := s.session.Target
		return EffectiveUser{
			ID:           target.ID,
			Email:        target.Email,
			FirstName:    target.FirstName,
			LastName:     target.LastName,
			Role:         target.Role,
			Impersonated: true,
		}
	}

	return EffectiveUser{
		ID:        admin.ID,
		Email:     admin.Email,
		FirstName: admin.FirstName,
		LastName:  admin.LastName,
	}
}

// resolveIP asks the lookup collaborator for the client address. Best
// effort: any failure substitutes the Unknown sentinel rather than failing
// session creation. Caller must hold the lock.
func (s *Service) resolveIP(ctx context.Context) string {
	if s.ipLookup == nil {
		return clientinfo.UnknownIP
	}
	ip, err := s.ipLookup.ClientIP(ctx)
	if err != nil {
		slog.Warn("Client IP lookup failed, using sentinel", "err", err)
		return clientinfo.UnknownIP
	}
	return ip
}

// record projects a lifecycle event for the active session. Caller must
// hold the lock and have s.session set.
func (s *Service) record(ctx context.Context, entry audit.Entry) {
	s.recordFor(ctx, s.session, entry)
}

// recordFor fills the identity fields from the given session and records
// the entry, then enforces retention without orphaning an open session's
// start record
func (s *Service) recordFor(ctx context.Context, session *Session, entry audit.Entry) {
	entry.AdminID = session.Admin.ID
	entry.AdminEmail = session.Admin.Email
	entry.TargetUserID = session.Target.ID
	entry.TargetUserEmail = session.Target.Email

	s.auditService.Record(ctx, entry)

	protect := uuid.Nil
	if s.session != nil {
		protect = s.session.ID
	}
	if err := s.auditService.Cleanup(ctx, protect); err != nil {
		slog.Error("Failed to enforce audit retention", "err", err)
	}
}

// notifyAsync sends a security notification without blocking the state
// transition; failures are logged only
func (s *Service) notifyAsync(event notify.Event) {
	notifier := s.notifier
	if notifier == nil {
		return
	}
	go func() {
		if err := notifier.Notify(context.Background(), event); err != nil {
			slog.Error("Failed to send security notification", "kind", event.Kind, "err", err)
		}
	}()
}
