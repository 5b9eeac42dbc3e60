package notify

import (
	"context"
	"log/slog"
)

// EventKind identifies a security notification
type EventKind string

const (
	ImpersonationStarted EventKind = "impersonation_started"
	ImpersonationEnded   EventKind = "impersonation_ended"
	AuditDeliveryFailed  EventKind = "audit_delivery_failed"
)

// Event carries the data rendered into a notification
type Event struct {
	Kind    EventKind
	Subject string
	Body    string
	Data    map[string]interface{}
}

// Notifier delivers security notifications. Delivery is best-effort: callers
// log failures and move on, they never fail the operation being notified about.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// NoopNotifier discards all notifications. Used when no SMTP endpoint is
// configured and in tests.
type NoopNotifier struct{}

// Notify logs and discards the event
func (NoopNotifier) Notify(ctx context.Context, event Event) error {
	slog.Debug("Notification discarded", "kind", event.Kind, "subject", event.Subject)
	return nil
}
