package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/ce-client/ce"
)

// Sink is the durable delivery target for audit entries. Delivery is
// at-least-once: the forwarder retries failed sends and reports what it
// could not deliver.
type Sink interface {
	Deliver(ctx context.Context, entry Entry) error
}

// CloudEventSink delivers audit entries as CloudEvents
type CloudEventSink struct {
	client *ce.EventClient
	source string
	typ    string
}

// NewCloudEventSink creates a sink that publishes audit entries through the
// given event client
func NewCloudEventSink(client *ce.EventClient, source string) *CloudEventSink {
	if source == "" {
		source = "simple-dashboard"
	}
	return &CloudEventSink{
		client: client,
		source: source,
		typ:    "audit.impersonation",
	}
}

// Deliver publishes the entry as a CloudEvent
func (s *CloudEventSink) Deliver(ctx context.Context, entry Entry) error {
	err := s.client.SendEventAsync(ce.EventGeneric{
		Subject: entry.SessionID.String(),
		Source:  s.source,
		Type:    s.typ,
		Data: map[string]interface{}{
			"id":                entry.ID.String(),
			"type":              string(entry.Type),
			"session_id":        entry.SessionID.String(),
			"admin_id":          entry.AdminID,
			"admin_email":       entry.AdminEmail,
			"target_user_id":    entry.TargetUserID,
			"target_user_email": entry.TargetUserEmail,
			"timestamp":         entry.Timestamp.Format(time.RFC3339Nano),
			"reason":            entry.Reason,
			"action":            entry.Action,
			"details":           entry.Details,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send audit event: %w", err)
	}
	return nil
}

// FailureHandler receives entries the forwarder gave up on, together with
// the final delivery error
type FailureHandler func(entry Entry, err error)

// Forwarder pushes recorded audit entries to a durable sink from a
// background worker so recording callers never block on, or see, delivery
// failures.
type Forwarder struct {
	sink       Sink
	queue      chan Entry
	maxRetries int
	retryDelay time.Duration
	onFailure  FailureHandler
	done       chan struct{}
}

// ForwarderOption configures a Forwarder
type ForwarderOption func(*Forwarder)

// WithMaxRetries sets how many times a failed delivery is retried
func WithMaxRetries(n int) ForwarderOption {
	return func(f *Forwarder) {
		f.maxRetries = n
	}
}

// WithRetryDelay sets the delay between delivery retries
func WithRetryDelay(d time.Duration) ForwarderOption {
	return func(f *Forwarder) {
		f.retryDelay = d
	}
}

// WithFailureHandler sets the handler invoked when delivery ultimately fails
func WithFailureHandler(h FailureHandler) ForwarderOption {
	return func(f *Forwarder) {
		f.onFailure = h
	}
}

// NewForwarder creates a forwarder for the given sink and starts its worker
func NewForwarder(sink Sink, opts ...ForwarderOption) *Forwarder {
	f := &Forwarder{
		sink:       sink,
		queue:      make(chan Entry, 256),
		maxRetries: 3,
		retryDelay: time.Second,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}

	go f.run()
	return f
}

// Enqueue hands an entry to the forwarder. Never blocks: when the queue is
// full the entry is reported as a delivery failure instead.
func (f *Forwarder) Enqueue(entry Entry) {
	select {
	case f.queue <- entry:
	default:
		slog.Warn("Audit forwarder queue full, dropping delivery", "id", entry.ID)
		f.fail(entry, context.DeadlineExceeded)
	}
}

// Close stops the worker after draining queued entries
func (f *Forwarder) Close() {
	close(f.queue)
	<-f.done
}

func (f *Forwarder) run() {
	defer close(f.done)
	for entry := range f.queue {
		f.deliver(entry)
	}
}

func (f *Forwarder) deliver(entry Entry) {
	var err error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(f.retryDelay)
		}
		err = f.sink.Deliver(context.Background(), entry)
		if err == nil {
			return
		}
		slog.Warn("Audit delivery failed", "id", entry.ID, "attempt", attempt+1, "err", err)
	}
	f.fail(entry, err)
}

func (f *Forwarder) fail(entry Entry, err error) {
	slog.Error("Audit delivery abandoned", "id", entry.ID, "type", entry.Type, "err", err)
	if f.onFailure != nil {
		f.onFailure(entry, err)
	}
}
