package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"github.com/tendant/simple-dashboard/pkg/impersonate"
)

// contextKey is a value for use with context.WithValue, kept private to
// this package so only the middleware can set it
type contextKey struct {
	name string
}

// AdminUserKey locates the authenticated admin in the request context
var AdminUserKey = &contextKey{"AdminUser"}

// AdminFromContext returns the authenticated admin set by AdminUserMiddleware
func AdminFromContext(ctx context.Context) (impersonate.Admin, bool) {
	admin, ok := ctx.Value(AdminUserKey).(impersonate.Admin)
	return admin, ok
}

// AdminUserMiddleware extracts the operator identity from verified JWT
// claims and requires the admin role. Must run after the jwtauth verifier
// and authenticator.
func AdminUserMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			http.Error(w, "missing or invalid JWT", http.StatusUnauthorized)
			return
		}

		admin := impersonate.Admin{}
		if sub, ok := claims["sub"].(string); ok {
			admin.ID = sub
		}
		if email, ok := claims["email"].(string); ok {
			admin.Email = email
		}
		if firstName, ok := claims["first_name"].(string); ok {
			admin.FirstName = firstName
		}
		if lastName, ok := claims["last_name"].(string); ok {
			admin.LastName = lastName
		}

		if admin.ID == "" || admin.Email == "" {
			slog.Error("JWT claims missing admin identity", "sub", admin.ID)
			http.Error(w, "incomplete identity claims", http.StatusUnauthorized)
			return
		}

		if !hasAdminRole(claims) {
			slog.Warn("Non-admin attempted impersonation endpoint", "userId", admin.ID)
			http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), AdminUserKey, admin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func hasAdminRole(claims map[string]interface{}) bool {
	roles, ok := claims["roles"].([]interface{})
	if !ok {
		return false
	}
	for _, role := range roles {
		if r, ok := role.(string); ok && (r == "admin" || r == "superadmin") {
			return true
		}
	}
	return false
}
