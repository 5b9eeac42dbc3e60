// Package impersonate implements the administrative "login as user"
// session lifecycle.
//
// A privileged admin may transparently assume another user's identity and
// view. The package guarantees that every state transition and every action
// taken under borrowed identity is projected into the audit trail
// (pkg/audit), and that the live session itself is never persisted: only
// its audit projections survive a restart, so a crash can never resume a
// stale impersonation.
//
// # State Machine
//
// The service is Idle or Impersonating. Start moves Idle to Impersonating
// and fails with ErrAlreadyImpersonating otherwise; End moves back to Idle
// and is a benign no-op when Idle, as is LogAction, so instrumentation may
// fire unconditionally.
//
// # Basic Usage
//
//	import "github.com/tendant/simple-dashboard/pkg/impersonate"
//
//	service := impersonate.NewService(auditService,
//		impersonate.WithIPLookup(lookup),
//		impersonate.WithNotifier(notifier),
//	)
//
//	session, err := service.Start(ctx, impersonate.StartRequest{
//		Admin:  admin,
//		Target: target,
//		Reason: "support ticket #42",
//	})
//
//	service.LogAction(ctx, "update_profile", "changed display name", nil)
//
//	summary := service.End(ctx)
//	// summary.DurationMs, summary.ActionsPerformed
//
// # Error Policy
//
// Session-state integrity takes precedence over audit completeness: End
// clears the session before attempting the end record, IP lookup failure
// substitutes a sentinel, and audit or notification failures are logged,
// never propagated to the triggering action.
//
// # Related Packages
//
//   - pkg/audit - Durable projections of every lifecycle and action event
//   - pkg/clientinfo - Best-effort client address resolution
package impersonate
