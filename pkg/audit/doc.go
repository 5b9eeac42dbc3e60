// Package audit provides the append-only, size-bounded audit trail for
// administrative impersonation.
//
// Every impersonation lifecycle transition and every action taken under a
// borrowed identity is projected into an immutable Entry. The collection is
// durable across restarts; the live impersonation session never is.
//
// # Overview
//
// The audit package provides:
//   - Append-only entry storage with in-memory, file and PostgreSQL repositories
//   - Filtered, timestamp-descending queries and free-text search
//   - Retention enforcement (oldest-first eviction, capped at 1000 entries)
//   - Fixed-column CSV export for the reporting screen
//   - At-least-once forwarding to a durable CloudEvents sink
//
// # Basic Usage
//
//	import "github.com/tendant/simple-dashboard/pkg/audit"
//
//	repo := audit.NewInMemAuditRepository()
//	service := audit.NewService(repo)
//
//	service.Record(ctx, audit.Entry{
//		Type:            audit.EntryTypeSessionStart,
//		SessionID:       sessionID,
//		AdminEmail:      "admin@example.com",
//		TargetUserEmail: "user@example.com",
//		Reason:          "support ticket #42",
//	})
//
//	entries, err := service.Query(ctx, audit.Filter{
//		AdminID: adminID,
//		Type:    audit.EntryTypeSessionStart,
//	})
//
// # Recording Semantics
//
// Record never returns an error: a failed append is logged and reported to
// the configured handler, because a missing audit write is a
// degraded-observability condition, not a correctness failure. Durable
// delivery to an external sink goes through a Forwarder worker that retries
// and surfaces abandoned deliveries through its failure handler.
//
// # Related Packages
//
//   - pkg/impersonate - Produces the entries recorded here
package audit
