package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-dashboard/pkg/audit"
	"github.com/tendant/simple-dashboard/pkg/directory"
	"github.com/tendant/simple-dashboard/pkg/impersonate"
)

var testAdmin = impersonate.Admin{
	ID:        "admin-1",
	Email:     "admin@example.com",
	FirstName: "Alice",
	LastName:  "Admin",
}

func setupHandle(t *testing.T) (*Handle, *impersonate.Service, directory.User) {
	userRepo := directory.NewInMemUserRepository()
	target, err := userRepo.AddUser(context.Background(), directory.User{
		Email:     "user@example.com",
		FirstName: "Bob",
		LastName:  "User",
		Role:      "customer",
	})
	require.NoError(t, err)

	auditService := audit.NewService(audit.NewInMemAuditRepository())
	service := impersonate.NewService(auditService)
	handle := NewHandle(service, directory.NewDirectoryService(userRepo))
	return handle, service, target
}

func setupRouter(handle *Handle) chi.Router {
	r := chi.NewRouter()
	handle.RegisterRoutes(r)
	return r
}

// doRequest issues a request with the admin identity already in context,
// standing in for the JWT middleware chain
func doRequest(router chi.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req = req.WithContext(context.WithValue(req.Context(), AdminUserKey, testAdmin))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandle_CreateImpersonate(t *testing.T) {
	handle, service, target := setupHandle(t)
	router := setupRouter(handle)

	t.Run("Success", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/impersonate", CreateImpersonateRequest{
			TargetUserID: target.ID.String(),
			Reason:       "support ticket #42",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var resp SessionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "admin@example.com", resp.AdminEmail)
		assert.Equal(t, "user@example.com", resp.TargetEmail)
		assert.Equal(t, "support ticket #42", resp.Reason)
		assert.True(t, service.IsImpersonating())
	})

	t.Run("ConflictWhenActive", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/impersonate", CreateImpersonateRequest{
			TargetUserID: target.ID.String(),
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("UnknownTarget", func(t *testing.T) {
		service.End(context.Background())
		w := doRequest(router, http.MethodPost, "/impersonate", CreateImpersonateRequest{
			TargetUserID: "b2c3a1d0-0000-0000-0000-000000000000",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("InvalidTargetID", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/impersonate", CreateImpersonateRequest{
			TargetUserID: "not-a-uuid",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("MissingAdminIdentity", func(t *testing.T) {
		var buf bytes.Buffer
		json.NewEncoder(&buf).Encode(CreateImpersonateRequest{TargetUserID: target.ID.String()})
		req := httptest.NewRequest(http.MethodPost, "/impersonate", &buf)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHandle_StartGuardScopedToStart(t *testing.T) {
	handle, _, target := setupHandle(t)

	denyAll := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "too many impersonation attempts", http.StatusTooManyRequests)
		})
	}
	guarded := NewHandle(handle.service, handle.directory, WithStartGuard(denyAll))
	router := setupRouter(guarded)

	w := doRequest(router, http.MethodPost, "/impersonate", CreateImpersonateRequest{
		TargetUserID: target.ID.String(),
	})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Ending and reading context are never throttled
	w = doRequest(router, http.MethodDelete, "/impersonate", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doRequest(router, http.MethodGet, "/impersonate/context", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandle_EndImpersonate(t *testing.T) {
	handle, service, target := setupHandle(t)
	router := setupRouter(handle)

	t.Run("EndsActiveSession", func(t *testing.T) {
		doRequest(router, http.MethodPost, "/impersonate", CreateImpersonateRequest{
			TargetUserID: target.ID.String(),
		})

		w := doRequest(router, http.MethodDelete, "/impersonate", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var summary impersonate.EndSummary
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
		assert.True(t, summary.Ended)
		assert.False(t, service.IsImpersonating())
	})

	t.Run("IdleReturnsSentinel", func(t *testing.T) {
		w := doRequest(router, http.MethodDelete, "/impersonate", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var summary impersonate.EndSummary
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
		assert.False(t, summary.Ended)
	})
}

func TestHandle_LogAction(t *testing.T) {
	handle, service, target := setupHandle(t)
	router := setupRouter(handle)

	doRequest(router, http.MethodPost, "/impersonate", CreateImpersonateRequest{
		TargetUserID: target.ID.String(),
	})

	t.Run("Success", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/impersonate/actions", LogActionRequest{
			ActionType: "update_profile",
			Details:    "Changed shipping address",
		})
		require.Equal(t, http.StatusNoContent, w.Code)

		session := service.CurrentSession()
		require.NotNil(t, session)
		require.Len(t, session.Actions, 1)
		assert.Equal(t, "update_profile", session.Actions[0].ActionType)
	})

	t.Run("MissingActionType", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/impersonate/actions", LogActionRequest{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandle_GetContext(t *testing.T) {
	handle, _, target := setupHandle(t)
	router := setupRouter(handle)

	t.Run("IdleReturnsAdmin", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/impersonate/context", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp ContextResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, testAdmin.Email, resp.EffectiveUser.Email)
		assert.False(t, resp.EffectiveUser.Impersonated)
		assert.Nil(t, resp.Session)
	})

	t.Run("ImpersonatingReturnsTarget", func(t *testing.T) {
		doRequest(router, http.MethodPost, "/impersonate", CreateImpersonateRequest{
			TargetUserID: target.ID.String(),
		})

		w := doRequest(router, http.MethodGet, "/impersonate/context", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp ContextResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, target.Email, resp.EffectiveUser.Email)
		assert.True(t, resp.EffectiveUser.Impersonated)
		require.NotNil(t, resp.Session)
		assert.Equal(t, target.Email, resp.Session.TargetEmail)
	})
}
