package impersonate

import (
	"context"
	"net/http"
)

// RouteTracker is an HTTP middleware that keeps the service's current
// navigation path in sync with the request being served, so action records
// capture where in the dashboard each action happened.
func RouteTracker(service *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			service.SetRoute(r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}
}

// ActionAudit is an HTTP middleware that records every mutating request as
// an impersonated action. A no-op outside an active session, so it can wrap
// the whole dashboard router unconditionally. Recording happens off the
// request path and never fails the request.
func ActionAudit(service *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
				if service.IsImpersonating() {
					method := r.Method
					path := r.URL.Path
					go service.LogAction(context.Background(), method+" "+path, "http request", nil)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
